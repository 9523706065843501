package investments

import (
	"context"
	"fmt"
	"sort"

	projectsvc "houseform-api/internal/application/projects"
	"houseform-api/internal/domain"
	"houseform-api/internal/pkg/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Service lists the projects an address holds shares in. Balances are read from
// the share contract on every call.
type Service struct {
	Projects *projectsvc.Service
}

// InvestmentView is one holding with its current value.
type InvestmentView struct {
	Project       projectsvc.ProjectView `json:"project"`
	Shares        uint64                 `json:"shares"`
	Cost          domain.Amount          `json:"cost"`
	Value         domain.Amount          `json:"value"`
	ValueDisplay  string                 `json:"value_display"`
	ProfitPercent float64                `json:"profit_percent"`
}

// List returns investments of address with a positive balance, newest project first.
func (s *Service) List(ctx context.Context, address string) ([]InvestmentView, error) {
	owner, err := domain.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	chain := s.Projects.Chain
	ps, err := chain.GetProjects(ctx)
	if err != nil {
		log.Error().Err(err).Msg("get projects failed")
		return nil, fmt.Errorf("get projects: %w", err)
	}

	balances := make([]uint64, len(ps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, p := range ps {
		i, id := i, p.ProjectID
		g.Go(func() error {
			bal, err := chain.BalanceOf(gctx, owner, id)
			if err != nil {
				return fmt.Errorf("balance of project %d: %w", id, err)
			}
			balances[i] = bal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("address", owner.Hex()).Msg("share balance read failed")
		return nil, err
	}

	held := make([]domain.Investment, 0, len(ps))
	for i, p := range ps {
		if balances[i] > 0 {
			held = append(held, domain.Investment{Project: p, Shares: balances[i]})
		}
	}
	return s.views(ctx, owner, held), nil
}

func (s *Service) views(ctx context.Context, owner common.Address, held []domain.Investment) []InvestmentView {
	projects := make([]domain.Project, len(held))
	shares := make(map[uint64]uint64, len(held))
	for i, inv := range held {
		projects[i] = inv.Project
		shares[inv.Project.ProjectID] = inv.Shares
	}
	pviews := s.Projects.Views(ctx, projects)
	byID := make(map[uint64]domain.Project, len(held))
	for _, p := range projects {
		byID[p.ProjectID] = p
	}

	out := make([]InvestmentView, 0, len(pviews))
	for _, pv := range pviews {
		inv := domain.Investment{Project: byID[pv.ProjectID], Shares: shares[pv.ProjectID]}
		value := inv.Value()
		out = append(out, InvestmentView{
			Project:       pv,
			Shares:        inv.Shares,
			Cost:          domain.NewAmount(domain.PurchaseAmount(inv.Project, inv.Shares)),
			Value:         domain.NewAmount(value),
			ValueDisplay:  token.Format(value, token.Decimals, 2),
			ProfitPercent: inv.ProfitPercent(),
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Project.ProjectID > out[b].Project.ProjectID
	})
	log.Debug().Str("address", owner.Hex()).Int("count", len(out)).Msg("investments listed")
	return out
}
