package projects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"houseform-api/internal/domain"
	"houseform-api/internal/pkg/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ChainReader is the read side of the manager and share contracts.
type ChainReader interface {
	GetProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id uint64) (domain.Project, error)
	GetBuilderProjects(ctx context.Context, builder common.Address) ([]domain.Project, error)
	BalanceOf(ctx context.Context, owner common.Address, id uint64) (uint64, error)
	URI(ctx context.Context, id uint64) (string, error)
}

// MetadataFetcher loads the JSON document behind a share URI.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) (*domain.Metadata, error)
}

const defaultFetchLimit = 8

// Service builds project views from live chain reads. Nothing is cached.
type Service struct {
	Chain          ChainReader
	Metadata       MetadataFetcher
	NativeUSDPrice float64
	NativeSymbol   string
	FetchLimit     int
	Now            func() time.Time
}

// ProjectView is a project snapshot plus everything derived from it for display.
type ProjectView struct {
	ProjectID              uint64                `json:"project_id"`
	Builder                string                `json:"builder"`
	State                  domain.LifecycleState `json:"state"`
	StateLabel             string                `json:"state_label"`
	StateColor             string                `json:"state_color"`
	GoalAmount             domain.Amount         `json:"goal_amount"`
	CurrentAmount          domain.Amount         `json:"current_amount"`
	SaleAmount             domain.Amount         `json:"sale_amount"`
	ShareCost              domain.Amount         `json:"share_cost"`
	ShareValue             domain.Amount         `json:"share_value"`
	BuilderFeeAmount       domain.Amount         `json:"builder_fee_amount"`
	ExpectedProfit         uint64                `json:"expected_profit"`
	BuilderFee             uint64                `json:"builder_fee"`
	CurrentShares          uint64                `json:"current_shares"`
	TotalShares            uint64                `json:"total_shares"`
	RemainingShares        uint64                `json:"remaining_shares"`
	FundingProgress        float64               `json:"funding_progress"`
	FundraisingDeadline    int64                 `json:"fundraising_deadline"`
	FundraisingCompletedOn int64                 `json:"fundraising_completed_on"`
	BuildingStartedOn      int64                 `json:"building_started_on"`
	BuildingCompletedOn    int64                 `json:"building_completed_on"`
	Display                DisplayAmounts        `json:"display"`
	Metadata               *domain.Metadata      `json:"metadata"`
}

// DisplayAmounts are whole-token strings for presentation only.
type DisplayAmounts struct {
	GoalAmount       string `json:"goal_amount"`
	CurrentAmount    string `json:"current_amount"`
	SaleAmount       string `json:"sale_amount"`
	ShareCost        string `json:"share_cost"`
	ShareValue       string `json:"share_value"`
	BuilderFeeAmount string `json:"builder_fee_amount"`
	ShareCostUSD     string `json:"share_cost_usd,omitempty"`
	Symbol           string `json:"symbol,omitempty"`
}

// EligibilityView answers which actions address may take on a project right now.
type EligibilityView struct {
	ProjectID   uint64                `json:"project_id"`
	Address     string                `json:"address"`
	State       domain.LifecycleState `json:"state"`
	SharesHeld  uint64                `json:"shares_held"`
	Eligibility domain.Eligibility    `json:"eligibility"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// BuildView derives the presentation fields of p. meta may be nil.
func (s *Service) BuildView(p domain.Project, meta *domain.Metadata) ProjectView {
	state := domain.DeriveLifecycleState(p, s.now())
	display := state.Display()
	cost := domain.ShareCost(p)
	value := domain.ShareValue(p)
	fee := domain.BuilderFeeAmount(p)
	return ProjectView{
		ProjectID:              p.ProjectID,
		Builder:                p.Builder.Hex(),
		State:                  state,
		StateLabel:             display.Label,
		StateColor:             display.Color,
		GoalAmount:             domain.NewAmount(p.GoalAmount),
		CurrentAmount:          domain.NewAmount(p.CurrentAmount),
		SaleAmount:             domain.NewAmount(p.SaleAmount),
		ShareCost:              domain.NewAmount(cost),
		ShareValue:             domain.NewAmount(value),
		BuilderFeeAmount:       domain.NewAmount(fee),
		ExpectedProfit:         p.ExpectedProfit,
		BuilderFee:             p.BuilderFee,
		CurrentShares:          p.CurrentShares,
		TotalShares:            p.TotalShares,
		RemainingShares:        p.RemainingShares(),
		FundingProgress:        p.FundingProgressPercent(),
		FundraisingDeadline:    p.FundraisingDeadline,
		FundraisingCompletedOn: p.FundraisingCompletedOn,
		BuildingStartedOn:      p.BuildingStartedOn,
		BuildingCompletedOn:    p.BuildingCompletedOn,
		Display: DisplayAmounts{
			GoalAmount:       token.Format(p.GoalAmount, token.Decimals, 2),
			CurrentAmount:    token.Format(p.CurrentAmount, token.Decimals, 2),
			SaleAmount:       token.Format(p.SaleAmount, token.Decimals, 2),
			ShareCost:        token.Format(cost, token.Decimals, 2),
			ShareValue:       token.Format(value, token.Decimals, 2),
			BuilderFeeAmount: token.Format(fee, token.Decimals, 2),
			ShareCostUSD:     token.FormatFiat(cost, token.Decimals, s.NativeUSDPrice),
			Symbol:           s.NativeSymbol,
		},
		Metadata: meta,
	}
}

// FetchMetadata resolves the share URI and loads the document. Failures are
// logged and yield nil so the project still renders.
func (s *Service) FetchMetadata(ctx context.Context, id uint64) *domain.Metadata {
	if s.Metadata == nil {
		return nil
	}
	uri, err := s.Chain.URI(ctx, id)
	if err != nil {
		log.Warn().Err(err).Uint64("project_id", id).Msg("share uri read failed")
		return nil
	}
	meta, err := s.Metadata.Fetch(ctx, uri)
	if err != nil {
		log.Warn().Err(err).Uint64("project_id", id).Str("uri", uri).Msg("metadata fetch failed")
		return nil
	}
	return meta
}

// Views builds views for ps concurrently, newest project first.
func (s *Service) Views(ctx context.Context, ps []domain.Project) []ProjectView {
	views := make([]ProjectView, len(ps))
	limit := s.FetchLimit
	if limit <= 0 {
		limit = defaultFetchLimit
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, p := range ps {
		i, p := i, p
		g.Go(func() error {
			views[i] = s.BuildView(p, s.FetchMetadata(ctx, p.ProjectID))
			return nil
		})
	}
	_ = g.Wait()
	sort.SliceStable(views, func(a, b int) bool {
		return views[a].ProjectID > views[b].ProjectID
	})
	return views
}

// List returns every project, newest first.
func (s *Service) List(ctx context.Context) ([]ProjectView, error) {
	ps, err := s.Chain.GetProjects(ctx)
	if err != nil {
		log.Error().Err(err).Msg("get projects failed")
		return nil, fmt.Errorf("get projects: %w", err)
	}
	return s.Views(ctx, ps), nil
}

// Get returns one project view or domain.ErrProjectNotFound.
func (s *Service) Get(ctx context.Context, id uint64) (ProjectView, error) {
	p, err := s.Chain.GetProject(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrProjectNotFound) {
			log.Error().Err(err).Uint64("project_id", id).Msg("get project failed")
		}
		return ProjectView{}, err
	}
	return s.BuildView(p, s.FetchMetadata(ctx, id)), nil
}

// ListByBuilder returns the projects created by the given address, newest first.
func (s *Service) ListByBuilder(ctx context.Context, address string) ([]ProjectView, error) {
	builder, err := domain.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	ps, err := s.Chain.GetBuilderProjects(ctx, builder)
	if err != nil {
		log.Error().Err(err).Str("builder", builder.Hex()).Msg("get builder projects failed")
		return nil, fmt.Errorf("get builder projects: %w", err)
	}
	return s.Views(ctx, ps), nil
}

// Eligibility evaluates the five action checks for address. An empty address
// is treated as a visitor with no wallet: it can only see whether buying is open.
func (s *Service) Eligibility(ctx context.Context, id uint64, address string) (EligibilityView, error) {
	var caller common.Address
	if address != "" {
		a, err := domain.ParseAddress(address)
		if err != nil {
			return EligibilityView{}, err
		}
		caller = a
	}
	p, err := s.Chain.GetProject(ctx, id)
	if err != nil {
		return EligibilityView{}, err
	}
	var held uint64
	if caller != (common.Address{}) {
		held, err = s.Chain.BalanceOf(ctx, caller, id)
		if err != nil {
			log.Error().Err(err).Uint64("project_id", id).Str("address", caller.Hex()).Msg("share balance read failed")
			return EligibilityView{}, fmt.Errorf("share balance: %w", err)
		}
	}
	now := s.now()
	out := EligibilityView{
		ProjectID:   id,
		State:       domain.DeriveLifecycleState(p, now),
		SharesHeld:  held,
		Eligibility: domain.EvaluateEligibility(p, caller, held, now),
	}
	if caller != (common.Address{}) {
		out.Address = caller.Hex()
	}
	return out, nil
}
