// Package chaintest provides an in-memory chain.Backend that serves the
// manager and share contracts from Go values.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"houseform-api/internal/domain"
	"houseform-api/internal/infrastructure/chain"
)

const ChainID = 1001

var (
	Manager = common.HexToAddress("0x0d4eF3419af9a0FEE9cc7dBE3EAC4156399f457C")
	Share   = common.HexToAddress("0x3ea99bEa8d5D1Cf76aF585ba207147C653297853")
)

// Contracts are the addresses the fake backend answers for.
func Contracts() chain.Contracts {
	return chain.Contracts{ChainID: ChainID, Manager: Manager, Share: Share, ABIVersion: chain.ABIV2}
}

type projectTuple struct {
	ProjectId              *big.Int
	Builder                common.Address
	CurrentAmount          *big.Int
	GoalAmount             *big.Int
	SaleAmount             *big.Int
	ExpectedProfit         *big.Int
	BuilderFee             *big.Int
	CurrentShares          *big.Int
	TotalShares            *big.Int
	FundraisingDeadline    *big.Int
	FundraisingCompletedOn *big.Int
	BuildingStartedOn      *big.Int
	BuildingCompletedOn    *big.Int
}

func tuple(p domain.Project) projectTuple {
	u := func(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
	z := func(v *big.Int) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return v
	}
	return projectTuple{
		ProjectId:              u(p.ProjectID),
		Builder:                p.Builder,
		CurrentAmount:          z(p.CurrentAmount),
		GoalAmount:             z(p.GoalAmount),
		SaleAmount:             z(p.SaleAmount),
		ExpectedProfit:         u(p.ExpectedProfit),
		BuilderFee:             u(p.BuilderFee),
		CurrentShares:          u(p.CurrentShares),
		TotalShares:            u(p.TotalShares),
		FundraisingDeadline:    big.NewInt(p.FundraisingDeadline),
		FundraisingCompletedOn: big.NewInt(p.FundraisingCompletedOn),
		BuildingStartedOn:      big.NewInt(p.BuildingStartedOn),
		BuildingCompletedOn:    big.NewInt(p.BuildingCompletedOn),
	}
}

// Backend is a chain.Backend over in-memory state. The zero value is not
// usable; call NewBackend.
type Backend struct {
	mu        sync.Mutex
	Projects  map[uint64]domain.Project
	Balances  map[common.Address]map[uint64]uint64
	URIs      map[uint64]string
	Approvals map[common.Address]bool
	Receipts  map[common.Hash]*types.Receipt
	Sent      []*types.Transaction
	CallErr   error
	SendErr   error
	Block     uint64
}

func NewBackend() *Backend {
	return &Backend{
		Projects:  map[uint64]domain.Project{},
		Balances:  map[common.Address]map[uint64]uint64{},
		URIs:      map[uint64]string{},
		Approvals: map[common.Address]bool{},
		Receipts:  map[common.Hash]*types.Receipt{},
		Block:     1,
	}
}

// Client returns a chain.Client wired to b.
func (b *Backend) Client() *chain.Client {
	return chain.New(b, Contracts())
}

func (b *Backend) AddProject(p domain.Project) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Projects[p.ProjectID] = p
}

func (b *Backend) SetBalance(owner common.Address, id, shares uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Balances[owner] == nil {
		b.Balances[owner] = map[uint64]uint64{}
	}
	b.Balances[owner][id] = shares
}

// Mine records a receipt for hash.
func (b *Backend) Mine(hash common.Hash, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	status := types.ReceiptStatusFailed
	if success {
		status = types.ReceiptStatusSuccessful
	}
	b.Block++
	b.Receipts[hash] = &types.Receipt{
		TxHash:      hash,
		Status:      status,
		BlockNumber: new(big.Int).SetUint64(b.Block),
		GasUsed:     21000,
	}
}

func (b *Backend) sortedProjects(filter func(domain.Project) bool) []projectTuple {
	ids := make([]uint64, 0, len(b.Projects))
	for id := range b.Projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []projectTuple{}
	for _, id := range ids {
		if p := b.Projects[id]; filter(p) {
			out = append(out, tuple(p))
		}
	}
	return out
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CallErr != nil {
		return nil, b.CallErr
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("chaintest: malformed call")
	}
	parsed := chain.ManagerABI(chain.ABIV2)
	if *msg.To == Share {
		parsed = chain.ShareABI()
	} else if *msg.To != Manager {
		return nil, fmt.Errorf("chaintest: no contract at %s", msg.To.Hex())
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	var out []interface{}
	switch method.Name {
	case "getProjects":
		out = []interface{}{b.sortedProjects(func(domain.Project) bool { return true })}
	case "getProject":
		id := args[0].(*big.Int).Uint64()
		p, ok := b.Projects[id]
		if !ok {
			return nil, errors.New("execution reverted: project does not exist")
		}
		out = []interface{}{tuple(p)}
	case "getBuilderProjects":
		builder := args[0].(common.Address)
		out = []interface{}{b.sortedProjects(func(p domain.Project) bool { return p.Builder == builder })}
	case "balanceOf":
		owner := args[0].(common.Address)
		id := args[1].(*big.Int).Uint64()
		out = []interface{}{new(big.Int).SetUint64(b.Balances[owner][id])}
	case "uri":
		uri, ok := b.URIs[args[0].(*big.Int).Uint64()]
		if !ok {
			return nil, errors.New("execution reverted: no uri")
		}
		out = []interface{}{uri}
	case "isApprovedForAll":
		owner := args[0].(common.Address)
		out = []interface{}{b.Approvals[owner] && args[1].(common.Address) == Manager}
	default:
		return nil, fmt.Errorf("chaintest: %s is not a view", method.Name)
	}
	return method.Outputs.Pack(out...)
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return b.SendErr
	}
	b.Sent = append(b.Sent, tx)
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.Receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CallErr != nil {
		return 0, b.CallErr
	}
	return b.Block, nil
}
