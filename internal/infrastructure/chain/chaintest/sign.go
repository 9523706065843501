package chaintest

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"houseform-api/internal/infrastructure/chain"
)

// SignTx signs req the way a wallet would and returns the raw encoding and hash.
func SignTx(key *ecdsa.PrivateKey, req chain.TxRequest, nonce uint64) ([]byte, common.Hash, error) {
	to := req.To
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(ChainID),
		Nonce:     nonce,
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(50_000_000_000),
		Gas:       300_000,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(ChainID)), key)
	if err != nil {
		return nil, common.Hash{}, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, common.Hash{}, err
	}
	return raw, signed.Hash(), nil
}
