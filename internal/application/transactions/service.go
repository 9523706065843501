package transactions

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"houseform-api/internal/domain"
	"houseform-api/internal/infrastructure/chain"
	"houseform-api/internal/pkg/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Chain is what the transaction flow needs from the chain client.
type Chain interface {
	Contracts() chain.Contracts
	GetProject(ctx context.Context, id uint64) (domain.Project, error)
	BalanceOf(ctx context.Context, owner common.Address, id uint64) (uint64, error)
	IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error)
	PackCreateProject(p domain.CreateProjectParams) (chain.TxRequest, error)
	PackBuyShares(id, shares uint64, value *big.Int) (chain.TxRequest, error)
	PackStartBuilding(id uint64) (chain.TxRequest, error)
	PackCompleteBuilding(id uint64, saleAmount *big.Int) (chain.TxRequest, error)
	PackRedeemFee(id uint64) (chain.TxRequest, error)
	PackRedeemShares(id, shares uint64) (chain.TxRequest, error)
	PackSetApprovalForAll(approved bool) (chain.TxRequest, error)
	DecodeRawTransaction(raw []byte) (*types.Transaction, common.Address, error)
	DecodeCall(tx *types.Transaction) (domain.Action, *uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	WaitForReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (chain.Receipt, error)
}

// Service prepares unsigned calls, relays signed ones and tracks them until mined.
// Signing always happens in the caller's wallet.
type Service struct {
	DB           *gorm.DB
	Chain        Chain
	Now          func() time.Time
	WaitTimeout  time.Duration
	PollInterval time.Duration
	// TxURL builds the block explorer link for a hash. Optional.
	TxURL func(hash string) string
}

// PrepareInput is the body of POST /transactions/prepare. Amounts are whole
// tokens as decimal strings ("150.5"); createProject fields are ignored by
// every other action.
type PrepareInput struct {
	Action              string  `json:"action"`
	ProjectID           *uint64 `json:"project_id"`
	From                string  `json:"from"`
	Shares              uint64  `json:"shares"`
	SaleAmount          string  `json:"sale_amount"`
	Approved            *bool   `json:"approved"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Image               string  `json:"image"`
	GoalAmount          string  `json:"goal_amount"`
	ExpectedProfit      uint64  `json:"expected_profit"`
	BuilderShares       uint64  `json:"builder_shares"`
	TotalShares         uint64  `json:"total_shares"`
	FundraisingDeadline int64   `json:"fundraising_deadline"`
}

// PreparedTx is an unsigned call for the wallet. When Approval is set it must
// be signed and mined first.
type PreparedTx struct {
	Action       domain.Action `json:"action"`
	ProjectID    *uint64       `json:"project_id,omitempty"`
	ChainID      int64         `json:"chain_id"`
	To           string        `json:"to"`
	Data         string        `json:"data"`
	Value        domain.Amount `json:"value"`
	ValueDisplay string        `json:"value_display"`
	Approval     *PreparedTx   `json:"approval,omitempty"`
}

// SubmitInput is the body of POST /transactions/submit. Action and ProjectID
// must agree with the signed calldata; ProjectID may be omitted.
type SubmitInput struct {
	RawTx     string  `json:"raw_tx"`
	Action    string  `json:"action"`
	ProjectID *uint64 `json:"project_id"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) withLink(rec *domain.TransactionRecord) *domain.TransactionRecord {
	if s.TxURL != nil {
		rec.ExplorerURL = s.TxURL(rec.Hash)
	}
	return rec
}

func (s *Service) prepared(a domain.Action, projectID *uint64, req chain.TxRequest) *PreparedTx {
	return &PreparedTx{
		Action:       a,
		ProjectID:    projectID,
		ChainID:      s.Chain.Contracts().ChainID,
		To:           req.To.Hex(),
		Data:         hexutil.Encode(req.Data),
		Value:        domain.NewAmount(req.Value),
		ValueDisplay: token.Format(req.Value, token.Decimals, 2),
	}
}

// Prepare validates the action against the live project state and encodes the call.
// The lifecycle gate is advisory; the contract enforces the same rules on execution.
func (s *Service) Prepare(ctx context.Context, caller common.Address, in PrepareInput) (*PreparedTx, error) {
	action, err := domain.ParseAction(in.Action)
	if err != nil {
		return nil, err
	}
	if in.From != "" {
		from, err := domain.ParseAddress(in.From)
		if err != nil {
			return nil, err
		}
		if from != caller {
			return nil, domain.ErrSenderMismatch
		}
	}

	if !action.TargetsProject() {
		if action == domain.ActionCreateProject {
			return s.prepareCreate(in)
		}
		approved := true
		if in.Approved != nil {
			approved = *in.Approved
		}
		req, err := s.Chain.PackSetApprovalForAll(approved)
		if err != nil {
			return nil, err
		}
		return s.prepared(action, nil, req), nil
	}

	if in.ProjectID == nil {
		return nil, domain.ErrMissingProjectID
	}
	id := *in.ProjectID
	p, err := s.Chain.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	var held uint64
	if action == domain.ActionRedeemShares {
		if held, err = s.Chain.BalanceOf(ctx, caller, id); err != nil {
			log.Error().Err(err).Uint64("project_id", id).Msg("share balance read failed")
			return nil, fmt.Errorf("share balance: %w", err)
		}
	}
	if !domain.Permitted(action, p, caller, held, s.now()) {
		return nil, domain.ErrActionNotPermitted
	}

	var req chain.TxRequest
	switch action {
	case domain.ActionBuyShares:
		if in.Shares == 0 || in.Shares > p.RemainingShares() {
			return nil, fmt.Errorf("%w: %d requested, %d available", domain.ErrInvalidShares, in.Shares, p.RemainingShares())
		}
		req, err = s.Chain.PackBuyShares(id, in.Shares, domain.PurchaseAmount(p, in.Shares))
	case domain.ActionStartBuilding:
		req, err = s.Chain.PackStartBuilding(id)
	case domain.ActionCompleteBuilding:
		sale, perr := token.Parse(in.SaleAmount, token.Decimals)
		if perr != nil || sale.Sign() <= 0 {
			return nil, fmt.Errorf("%w: sale_amount must be a positive amount", domain.ErrInvalidAmount)
		}
		req, err = s.Chain.PackCompleteBuilding(id, sale)
	case domain.ActionRedeemFee:
		req, err = s.Chain.PackRedeemFee(id)
	case domain.ActionRedeemShares:
		return s.prepareRedeemShares(ctx, caller, id, in.Shares, held)
	}
	if err != nil {
		return nil, err
	}
	return s.prepared(action, in.ProjectID, req), nil
}

func (s *Service) prepareCreate(in PrepareInput) (*PreparedTx, error) {
	goal, err := token.Parse(in.GoalAmount, token.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: goal_amount: %v", domain.ErrInvalidCreateParams, err)
	}
	params := domain.CreateProjectParams{
		Name:                in.Name,
		Description:         in.Description,
		Image:               in.Image,
		GoalAmount:          goal,
		ExpectedProfit:      in.ExpectedProfit,
		BuilderShares:       in.BuilderShares,
		TotalShares:         in.TotalShares,
		FundraisingDeadline: in.FundraisingDeadline,
	}
	if err := params.Validate(s.now()); err != nil {
		return nil, err
	}
	req, err := s.Chain.PackCreateProject(params)
	if err != nil {
		return nil, err
	}
	return s.prepared(domain.ActionCreateProject, nil, req), nil
}

// prepareRedeemShares redeems all held shares when shares is 0. The manager
// moves shares on the holder's behalf, so an approval call is attached when
// the holder has not approved it yet.
func (s *Service) prepareRedeemShares(ctx context.Context, caller common.Address, id, shares, held uint64) (*PreparedTx, error) {
	if shares == 0 {
		shares = held
	}
	if shares > held {
		return nil, fmt.Errorf("%w: %d requested, %d held", domain.ErrInvalidShares, shares, held)
	}
	req, err := s.Chain.PackRedeemShares(id, shares)
	if err != nil {
		return nil, err
	}
	projectID := id
	out := s.prepared(domain.ActionRedeemShares, &projectID, req)

	approved, err := s.Chain.IsApprovedForAll(ctx, caller, s.Chain.Contracts().Manager)
	if err != nil {
		log.Error().Err(err).Str("owner", caller.Hex()).Msg("approval read failed")
		return nil, fmt.Errorf("approval status: %w", err)
	}
	if !approved {
		approval, err := s.Chain.PackSetApprovalForAll(true)
		if err != nil {
			return nil, err
		}
		out.Approval = s.prepared(domain.ActionSetApprovalForAll, nil, approval)
	}
	return out, nil
}

// Submit relays a wallet-signed transaction and records it as pending.
func (s *Service) Submit(ctx context.Context, caller common.Address, in SubmitInput) (*domain.TransactionRecord, error) {
	action, err := domain.ParseAction(in.Action)
	if err != nil {
		return nil, err
	}
	raw, err := hexutil.Decode(in.RawTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRawTx, err)
	}
	tx, from, err := s.Chain.DecodeRawTransaction(raw)
	if err != nil {
		if errors.Is(err, domain.ErrForeignTransaction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRawTx, err)
	}
	if from != caller {
		return nil, domain.ErrSenderMismatch
	}
	called, projectID, err := s.Chain.DecodeCall(tx)
	if err != nil {
		return nil, err
	}
	if called != action {
		return nil, fmt.Errorf("%w: signed %s, declared %s", domain.ErrCallMismatch, called, action)
	}
	if in.ProjectID != nil && (projectID == nil || *projectID != *in.ProjectID) {
		return nil, fmt.Errorf("%w: project_id %d", domain.ErrCallMismatch, *in.ProjectID)
	}
	if err := s.Chain.SendTransaction(ctx, tx); err != nil {
		return nil, err
	}

	rec := domain.TransactionRecord{
		Hash:        tx.Hash().Hex(),
		Action:      action,
		ProjectID:   projectID,
		FromAddress: from.Hex(),
		ToAddress:   tx.To().Hex(),
		Value:       domain.NewAmount(tx.Value()),
		Status:      domain.TxStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		log.Error().Err(err).Str("hash", rec.Hash).Msg("record transaction failed")
		return nil, err
	}
	log.Info().Str("hash", rec.Hash).Str("action", string(action)).Str("from", rec.FromAddress).Msg("transaction relayed")
	return s.withLink(&rec), nil
}

// Wait blocks until the recorded transaction is mined or the wait timeout
// elapses, then stores the outcome. A reverted transaction is returned with
// status reverted, not as an error.
func (s *Service) Wait(ctx context.Context, hash string) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	if err := s.DB.WithContext(ctx).Where("hash = ?", common.HexToHash(hash).Hex()).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	s.withLink(&rec)
	if rec.Status != domain.TxStatusPending {
		return &rec, nil
	}

	timeout := s.WaitTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	receipt, err := s.Chain.WaitForReceipt(wctx, common.HexToHash(rec.Hash), s.PollInterval)
	switch {
	case err == nil:
		rec.Status = domain.TxStatusConfirmed
	case errors.Is(err, domain.ErrTransactionReverted):
		rec.Status = domain.TxStatusReverted
	case errors.Is(err, context.DeadlineExceeded):
		return &rec, domain.ErrConfirmationTimeout
	default:
		return nil, err
	}
	block, gas := receipt.BlockNumber, receipt.GasUsed
	rec.BlockNumber, rec.GasUsed = &block, &gas

	if err := s.DB.WithContext(ctx).Model(&domain.TransactionRecord{}).
		Where("tx_id = ?", rec.TxID).
		Updates(map[string]interface{}{
			"status":       rec.Status,
			"block_number": block,
			"gas_used":     gas,
		}).Error; err != nil {
		log.Error().Err(err).Str("hash", rec.Hash).Msg("update transaction failed")
		return nil, err
	}
	log.Info().Str("hash", rec.Hash).Str("status", string(rec.Status)).Uint64("block", block).Msg("transaction mined")
	return &rec, nil
}

// List returns transactions relayed from address, newest first.
func (s *Service) List(ctx context.Context, address string) ([]domain.TransactionRecord, error) {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	var out []domain.TransactionRecord
	if err := s.DB.WithContext(ctx).
		Where("from_address = ?", addr.Hex()).
		Order(`"createdAt" DESC`).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.TransactionRecord{}
	}
	for i := range out {
		s.withLink(&out[i])
	}
	return out, nil
}
