package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"houseform-api/internal/domain"
)

// Backend is the subset of ethclient.Client the API uses.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Contracts holds the deployed addresses and chain parameters for one network.
type Contracts struct {
	ChainID    int64
	Manager    common.Address
	Share      common.Address
	ABIVersion ABIVersion
}

// Client reads the manager and share contracts and relays signed transactions.
type Client struct {
	backend   Backend
	contracts Contracts
	manager   abi.ABI
	share     abi.ABI
}

// TxRequest is an unsigned call for the wallet to sign.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Receipt summarizes a mined transaction.
type Receipt struct {
	Hash        common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Success     bool
}

func New(backend Backend, contracts Contracts) *Client {
	return &Client{
		backend:   backend,
		contracts: contracts,
		manager:   ManagerABI(contracts.ABIVersion),
		share:     ShareABI(),
	}
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string, contracts Contracts) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return New(ec, contracts), nil
}

func (c *Client) Contracts() Contracts {
	return c.contracts
}

// BlockNumber is used as the chain liveness probe.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.backend.BlockNumber(ctx)
}

func (c *Client) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	res, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return res, nil
}

// decodeProjects converts a project list. Entries that fail validation are skipped.
func (c *Client) decodeProjects(v interface{}) ([]domain.Project, error) {
	var raws []rawProject
	if c.contracts.ABIVersion == ABIV1 {
		legacy := *abi.ConvertType(v, new([]rawProjectV1)).(*[]rawProjectV1)
		for _, r := range legacy {
			raws = append(raws, r.upgrade())
		}
	} else {
		raws = *abi.ConvertType(v, new([]rawProject)).(*[]rawProject)
	}
	projects := make([]domain.Project, 0, len(raws))
	for _, r := range raws {
		p, err := r.toDomain()
		if err != nil {
			log.Warn().Err(err).Str("project_id", r.ProjectId.String()).Msg("skipping invalid project")
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (c *Client) decodeProject(v interface{}) rawProject {
	if c.contracts.ABIVersion == ABIV1 {
		return abi.ConvertType(v, new(rawProjectV1)).(*rawProjectV1).upgrade()
	}
	return *abi.ConvertType(v, new(rawProject)).(*rawProject)
}

// GetProjects returns every project the manager knows about.
func (c *Client) GetProjects(ctx context.Context) ([]domain.Project, error) {
	out, err := c.call(ctx, c.manager, c.contracts.Manager, "getProjects")
	if err != nil {
		return nil, err
	}
	return c.decodeProjects(out[0])
}

// GetProject returns one project or domain.ErrProjectNotFound.
func (c *Client) GetProject(ctx context.Context, id uint64) (domain.Project, error) {
	out, err := c.call(ctx, c.manager, c.contracts.Manager, "getProject", new(big.Int).SetUint64(id))
	if err != nil {
		if isRevert(err) {
			return domain.Project{}, domain.ErrProjectNotFound
		}
		return domain.Project{}, err
	}
	raw := c.decodeProject(out[0])
	if raw.empty() {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	return raw.toDomain()
}

// GetBuilderProjects returns the projects created by builder.
func (c *Client) GetBuilderProjects(ctx context.Context, builder common.Address) ([]domain.Project, error) {
	out, err := c.call(ctx, c.manager, c.contracts.Manager, "getBuilderProjects", builder)
	if err != nil {
		return nil, err
	}
	return c.decodeProjects(out[0])
}

// BalanceOf is the number of shares of project id held by owner.
func (c *Client) BalanceOf(ctx context.Context, owner common.Address, id uint64) (uint64, error) {
	out, err := c.call(ctx, c.share, c.contracts.Share, "balanceOf", owner, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("balanceOf: unexpected type %T", out[0])
	}
	if !bal.IsUint64() {
		return 0, fmt.Errorf("balanceOf: value out of range: %s", bal)
	}
	return bal.Uint64(), nil
}

// URI is the metadata location of project id.
func (c *Client) URI(ctx context.Context, id uint64) (string, error) {
	out, err := c.call(ctx, c.share, c.contracts.Share, "uri", new(big.Int).SetUint64(id))
	if err != nil {
		return "", err
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("uri: unexpected type %T", out[0])
	}
	return uri, nil
}

func (c *Client) IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	out, err := c.call(ctx, c.share, c.contracts.Share, "isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, fmt.Errorf("isApprovedForAll: unexpected type %T", out[0])
	}
	return ok, nil
}

func (c *Client) managerCall(method string, value *big.Int, args ...interface{}) (TxRequest, error) {
	data, err := c.manager.Pack(method, args...)
	if err != nil {
		return TxRequest{}, fmt.Errorf("pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}
	return TxRequest{To: c.contracts.Manager, Data: data, Value: value}, nil
}

func (c *Client) PackCreateProject(p domain.CreateProjectParams) (TxRequest, error) {
	return c.managerCall("createProject", nil,
		p.Name, p.Description, p.Image,
		p.GoalAmount,
		new(big.Int).SetUint64(p.ExpectedProfit),
		new(big.Int).SetUint64(p.BuilderShares),
		new(big.Int).SetUint64(p.TotalShares),
		big.NewInt(p.FundraisingDeadline),
	)
}

// PackBuyShares attaches value, the full purchase amount in the smallest unit.
func (c *Client) PackBuyShares(id, shares uint64, value *big.Int) (TxRequest, error) {
	return c.managerCall("buyShares", value, new(big.Int).SetUint64(id), new(big.Int).SetUint64(shares))
}

func (c *Client) PackStartBuilding(id uint64) (TxRequest, error) {
	return c.managerCall("startBuilding", nil, new(big.Int).SetUint64(id))
}

// PackCompleteBuilding attaches the sale proceeds as value.
func (c *Client) PackCompleteBuilding(id uint64, saleAmount *big.Int) (TxRequest, error) {
	return c.managerCall("completeBuilding", saleAmount, new(big.Int).SetUint64(id))
}

func (c *Client) PackRedeemFee(id uint64) (TxRequest, error) {
	return c.managerCall("redeemFee", nil, new(big.Int).SetUint64(id))
}

func (c *Client) PackRedeemShares(id, shares uint64) (TxRequest, error) {
	return c.managerCall("redeemShares", nil, new(big.Int).SetUint64(id), new(big.Int).SetUint64(shares))
}

// PackSetApprovalForAll approves the manager to move the caller's shares.
func (c *Client) PackSetApprovalForAll(approved bool) (TxRequest, error) {
	data, err := c.share.Pack("setApprovalForAll", c.contracts.Manager, approved)
	if err != nil {
		return TxRequest{}, fmt.Errorf("pack setApprovalForAll: %w", err)
	}
	return TxRequest{To: c.contracts.Share, Data: data, Value: new(big.Int)}, nil
}

// DecodeRawTransaction parses a wallet-signed transaction and recovers its sender.
// Only transactions addressed to the manager or share contract are accepted.
func (c *Client) DecodeRawTransaction(raw []byte) (*types.Transaction, common.Address, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, common.Address{}, fmt.Errorf("decode transaction: %w", err)
	}
	to := tx.To()
	if to == nil || (*to != c.contracts.Manager && *to != c.contracts.Share) {
		return nil, common.Address{}, domain.ErrForeignTransaction
	}
	signer := types.LatestSignerForChainID(big.NewInt(c.contracts.ChainID))
	from, err := types.Sender(signer, tx)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("recover sender: %w", err)
	}
	return tx, from, nil
}

// DecodeCall reports which Houseform action tx invokes and, for project-scoped
// actions, the project id in its calldata.
func (c *Client) DecodeCall(tx *types.Transaction) (domain.Action, *uint64, error) {
	contract := c.manager
	if to := tx.To(); to != nil && *to == c.contracts.Share {
		contract = c.share
	}
	data := tx.Data()
	if len(data) < 4 {
		return "", nil, fmt.Errorf("%w: missing method selector", domain.ErrCallMismatch)
	}
	m, err := contract.MethodById(data[:4])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrCallMismatch, err)
	}
	action, err := domain.ParseAction(m.Name)
	if err != nil {
		return "", nil, fmt.Errorf("%w: unsupported method %s", domain.ErrCallMismatch, m.Name)
	}
	if !action.TargetsProject() {
		return action, nil, nil
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil || len(args) == 0 {
		return "", nil, fmt.Errorf("%w: malformed %s arguments", domain.ErrCallMismatch, m.Name)
	}
	id, ok := args[0].(*big.Int)
	if !ok || !id.IsUint64() {
		return "", nil, fmt.Errorf("%w: bad project id in %s", domain.ErrCallMismatch, m.Name)
	}
	projectID := id.Uint64()
	return action, &projectID, nil
}

// SendTransaction broadcasts a signed transaction. Failures are not retried.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		log.Error().Err(err).Str("hash", tx.Hash().Hex()).Msg("send transaction failed")
		return fmt.Errorf("send transaction: %w", err)
	}
	return nil
}

// WaitForReceipt polls until the transaction is mined or ctx is done.
// A mined transaction with failed status returns the receipt and domain.ErrTransactionReverted.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (Receipt, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		r, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && r != nil:
			out := Receipt{
				Hash:    hash,
				GasUsed: r.GasUsed,
				Success: r.Status == types.ReceiptStatusSuccessful,
			}
			if r.BlockNumber != nil {
				out.BlockNumber = r.BlockNumber.Uint64()
			}
			if !out.Success {
				return out, domain.ErrTransactionReverted
			}
			return out, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return Receipt{}, fmt.Errorf("transaction receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
