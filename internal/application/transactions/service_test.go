package transactions

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"houseform-api/internal/config"
	"houseform-api/internal/domain"
	"houseform-api/internal/infrastructure/chain"
	"houseform-api/internal/infrastructure/chain/chaintest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Unix(1_800_000_000, 0)

type fixture struct {
	svc         *Service
	backend     *chaintest.Backend
	builderKey  *ecdsa.PrivateKey
	builder     common.Address
	investorKey *ecdsa.PrivateKey
	investor    common.Address
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func setup(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.TransactionRecord{}))

	bk, err := crypto.GenerateKey()
	require.NoError(t, err)
	ik, err := crypto.GenerateKey()
	require.NoError(t, err)

	b := chaintest.NewBackend()
	f := &fixture{
		backend:     b,
		builderKey:  bk,
		builder:     crypto.PubkeyToAddress(bk.PublicKey),
		investorKey: ik,
		investor:    crypto.PubkeyToAddress(ik.PublicKey),
	}
	f.svc = &Service{
		DB:           db,
		Chain:        b.Client(),
		Now:          func() time.Time { return now },
		WaitTimeout:  200 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		TxURL:        config.Networks[config.Testnet].TxURL,
	}

	// 0 fundraising, 1 preparing, 2 started, 3 completed
	base := domain.Project{
		Builder: f.builder, CurrentAmount: eth(40), GoalAmount: eth(100), SaleAmount: big.NewInt(0),
		ExpectedProfit: 20, BuilderFee: 5, CurrentShares: 4, TotalShares: 10,
		FundraisingDeadline: now.Unix() + 3600,
	}
	for id := uint64(0); id < 4; id++ {
		p := base
		p.ProjectID = id
		if id >= 1 {
			p.CurrentAmount, p.CurrentShares = eth(100), 10
			p.FundraisingCompletedOn = now.Unix() - 100
		}
		if id >= 2 {
			p.BuildingStartedOn = now.Unix() - 50
		}
		if id >= 3 {
			p.BuildingCompletedOn = now.Unix() - 10
			p.SaleAmount = eth(140)
		}
		b.AddProject(p)
	}
	return f
}

func id(v uint64) *uint64 { return &v }

func TestPrepare_BuyShares(t *testing.T) {
	f := setup(t)

	out, err := f.svc.Prepare(context.Background(), f.investor, PrepareInput{
		Action: "buyShares", ProjectID: id(0), From: f.investor.Hex(), Shares: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuyShares, out.Action)
	assert.Equal(t, chaintest.Manager.Hex(), out.To)
	assert.Equal(t, domain.NewAmount(eth(30)), out.Value)
	assert.Equal(t, "30.00", out.ValueDisplay)
	assert.Equal(t, int64(chaintest.ChainID), out.ChainID)

	data, err := hexutil.Decode(out.Data)
	require.NoError(t, err)
	managerABI := chain.ManagerABI(chain.ABIV2)
	m, err := managerABI.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "buyShares", m.Name)
}

func TestPrepare_BuySharesRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "buyShares", ProjectID: id(0), Shares: 7})
	assert.ErrorIs(t, err, domain.ErrInvalidShares)

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "buyShares", ProjectID: id(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidShares)

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "buyShares", ProjectID: id(1), Shares: 1})
	assert.ErrorIs(t, err, domain.ErrActionNotPermitted)

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "buyShares", Shares: 1})
	assert.ErrorIs(t, err, domain.ErrMissingProjectID)

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "buyShares", ProjectID: id(9), Shares: 1})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "buyShares", ProjectID: id(0), Shares: 1, From: f.builder.Hex()})
	assert.ErrorIs(t, err, domain.ErrSenderMismatch)

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "withdraw", ProjectID: id(0)})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestPrepare_BuilderActions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	out, err := f.svc.Prepare(ctx, f.builder, PrepareInput{Action: "startBuilding", ProjectID: id(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.Amount("0"), out.Value)

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "startBuilding", ProjectID: id(1)})
	assert.ErrorIs(t, err, domain.ErrActionNotPermitted)

	out, err = f.svc.Prepare(ctx, f.builder, PrepareInput{Action: "completeBuilding", ProjectID: id(2), SaleAmount: "140.5"})
	require.NoError(t, err)
	want := new(big.Int).Add(eth(140), new(big.Int).Div(eth(1), big.NewInt(2)))
	assert.Equal(t, domain.NewAmount(want), out.Value)

	_, err = f.svc.Prepare(ctx, f.builder, PrepareInput{Action: "completeBuilding", ProjectID: id(2), SaleAmount: "0"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Prepare(ctx, f.builder, PrepareInput{Action: "completeBuilding", ProjectID: id(2)})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Prepare(ctx, f.builder, PrepareInput{Action: "redeemFee", ProjectID: id(3)})
	require.NoError(t, err)

	_, err = f.svc.Prepare(ctx, f.builder, PrepareInput{Action: "redeemFee", ProjectID: id(2)})
	assert.ErrorIs(t, err, domain.ErrActionNotPermitted)
}

func TestPrepare_RedeemSharesWithApproval(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "redeemShares", ProjectID: id(3)})
	assert.ErrorIs(t, err, domain.ErrActionNotPermitted)

	f.backend.SetBalance(f.investor, 3, 4)

	out, err := f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "redeemShares", ProjectID: id(3)})
	require.NoError(t, err)
	require.NotNil(t, out.Approval)
	assert.Equal(t, domain.ActionSetApprovalForAll, out.Approval.Action)
	assert.Equal(t, chaintest.Share.Hex(), out.Approval.To)

	data, err := hexutil.Decode(out.Data)
	require.NoError(t, err)
	args, err := chain.ManagerABI(chain.ABIV2).Methods["redeemShares"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(4), args[1].(*big.Int).Int64())

	_, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "redeemShares", ProjectID: id(3), Shares: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidShares)

	f.backend.Approvals[f.investor] = true
	out, err = f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "redeemShares", ProjectID: id(3), Shares: 2})
	require.NoError(t, err)
	assert.Nil(t, out.Approval)
}

func TestPrepare_CreateProject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	out, err := f.svc.Prepare(ctx, f.builder, PrepareInput{
		Action: "createProject", Name: "Maple Court", Description: "Six townhouses", Image: "https://img.example/maple.png", GoalAmount: "100",
		ExpectedProfit: 20, BuilderShares: 1, TotalShares: 10, FundraisingDeadline: now.Unix() + 86400,
	})
	require.NoError(t, err)
	assert.Nil(t, out.ProjectID)
	assert.Equal(t, chaintest.Manager.Hex(), out.To)

	_, err = f.svc.Prepare(ctx, f.builder, PrepareInput{
		Action: "createProject", Name: "Maple Court", GoalAmount: "100",
		TotalShares: 10, FundraisingDeadline: now.Unix() - 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCreateParams)

	_, err = f.svc.Prepare(ctx, f.builder, PrepareInput{
		Action: "createProject", Name: "Maple Court", GoalAmount: "abc",
		TotalShares: 10, FundraisingDeadline: now.Unix() + 10,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCreateParams)
}

func TestSubmitAndWait(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	prepared, err := f.svc.Prepare(ctx, f.investor, PrepareInput{Action: "buyShares", ProjectID: id(0), Shares: 2})
	require.NoError(t, err)
	data, _ := hexutil.Decode(prepared.Data)
	value, _ := prepared.Value.Big()
	raw, hash, err := chaintest.SignTx(f.investorKey, chain.TxRequest{To: chaintest.Manager, Data: data, Value: value}, 0)
	require.NoError(t, err)

	rec, err := f.svc.Submit(ctx, f.investor, SubmitInput{RawTx: hexutil.Encode(raw), Action: "buyShares", ProjectID: id(0)})
	require.NoError(t, err)
	assert.Equal(t, hash.Hex(), rec.Hash)
	assert.Equal(t, domain.TxStatusPending, rec.Status)
	assert.Equal(t, domain.NewAmount(eth(20)), rec.Value)
	assert.Equal(t, "https://baobab.scope.klaytn.com/tx/"+hash.Hex(), rec.ExplorerURL)
	require.Len(t, f.backend.Sent, 1)

	list, err := f.svc.List(ctx, f.investor.Hex())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ExplorerURL, list[0].ExplorerURL)

	_, err = f.svc.Wait(ctx, hash.Hex())
	assert.ErrorIs(t, err, domain.ErrConfirmationTimeout)

	f.backend.Mine(hash, true)
	rec, err = f.svc.Wait(ctx, hash.Hex())
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, rec.Status)
	require.NotNil(t, rec.BlockNumber)

	var stored domain.TransactionRecord
	require.NoError(t, f.svc.DB.Where("hash = ?", hash.Hex()).First(&stored).Error)
	assert.Equal(t, domain.TxStatusConfirmed, stored.Status)

	_, err = f.svc.Wait(ctx, common.HexToHash("0xdead").Hex())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestSubmit_Reverted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.backend.Client().PackStartBuilding(1)
	require.NoError(t, err)
	raw, hash, err := chaintest.SignTx(f.builderKey, req, 0)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.builder, SubmitInput{RawTx: hexutil.Encode(raw), Action: "startBuilding", ProjectID: id(1)})
	require.NoError(t, err)

	f.backend.Mine(hash, false)
	rec, err := f.svc.Wait(ctx, hash.Hex())
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusReverted, rec.Status)
}

func TestSubmit_Rejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.backend.Client().PackStartBuilding(1)
	require.NoError(t, err)
	raw, _, err := chaintest.SignTx(f.builderKey, req, 0)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.investor, SubmitInput{RawTx: hexutil.Encode(raw), Action: "startBuilding"})
	assert.ErrorIs(t, err, domain.ErrSenderMismatch)

	_, err = f.svc.Submit(ctx, f.builder, SubmitInput{RawTx: "zz", Action: "startBuilding"})
	assert.ErrorIs(t, err, domain.ErrInvalidRawTx)

	foreign, _, err := chaintest.SignTx(f.builderKey, chain.TxRequest{To: common.HexToAddress("0x01")}, 1)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.builder, SubmitInput{RawTx: hexutil.Encode(foreign), Action: "startBuilding"})
	assert.ErrorIs(t, err, domain.ErrForeignTransaction)

	assert.Empty(t, f.backend.Sent)

	_, err = f.svc.List(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestSubmit_CallMustMatchDeclaration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.backend.Client().PackStartBuilding(1)
	require.NoError(t, err)
	raw, _, err := chaintest.SignTx(f.builderKey, req, 0)
	require.NoError(t, err)
	signed := hexutil.Encode(raw)

	_, err = f.svc.Submit(ctx, f.builder, SubmitInput{RawTx: signed, Action: "redeemFee", ProjectID: id(1)})
	assert.ErrorIs(t, err, domain.ErrCallMismatch)

	_, err = f.svc.Submit(ctx, f.builder, SubmitInput{RawTx: signed, Action: "startBuilding", ProjectID: id(2)})
	assert.ErrorIs(t, err, domain.ErrCallMismatch)
	assert.Empty(t, f.backend.Sent)

	rec, err := f.svc.Submit(ctx, f.builder, SubmitInput{RawTx: signed, Action: "startBuilding"})
	require.NoError(t, err)
	require.NotNil(t, rec.ProjectID)
	assert.Equal(t, uint64(1), *rec.ProjectID)
}

func TestPrepare_SetApprovalNeedsNoProject(t *testing.T) {
	f := setup(t)
	revoke := false

	tx, err := f.svc.Prepare(context.Background(), f.investor, PrepareInput{Action: "setApprovalForAll", Approved: &revoke})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSetApprovalForAll, tx.Action)
	assert.Nil(t, tx.ProjectID)
	assert.Equal(t, chaintest.Share.Hex(), tx.To)

	data, err := hexutil.Decode(tx.Data)
	require.NoError(t, err)
	args, err := chain.ShareABI().Methods["setApprovalForAll"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, chaintest.Manager, args[0].(common.Address))
	assert.Equal(t, false, args[1].(bool))
}
