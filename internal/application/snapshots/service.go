package snapshots

import (
	"context"
	"errors"
	"fmt"
	"time"

	projectsvc "houseform-api/internal/application/projects"
	"houseform-api/internal/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service copies on-chain projects into the ProjectSnapshots table for
// reporting. Request paths never read these rows back as live state.
type Service struct {
	DB       *gorm.DB
	Projects *projectsvc.Service
	Now      func() time.Time
}

// ErrInvalidStateFilter is returned for a state query that is not a lifecycle state.
var ErrInvalidStateFilter = errors.New("Invalid state filter")

// SnapshotView is a stored snapshot with the state it would have now.
type SnapshotView struct {
	domain.ProjectSnapshot
	CurrentState domain.LifecycleState `json:"current_state"`
}

var upsertColumns = []string{
	"builder", "current_amount", "goal_amount", "sale_amount",
	"expected_profit", "builder_fee", "current_shares", "total_shares",
	"fundraising_deadline", "fundraising_completed_on", "building_started_on", "building_completed_on",
	"state", "metadata", "syncedAt", "updatedAt",
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SyncProjects reads every project from chain and upserts one row per project id.
func (s *Service) SyncProjects(ctx context.Context) (map[string]interface{}, error) {
	ps, err := s.Projects.Chain.GetProjects(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sync: get projects failed")
		return nil, fmt.Errorf("get projects: %w", err)
	}
	if len(ps) == 0 {
		return map[string]interface{}{
			"success": true,
			"count":   0,
			"message": "No projects found on chain",
		}, nil
	}

	syncedAt := s.now().UTC()
	rows := make([]domain.ProjectSnapshot, len(ps))
	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range ps {
		i, p := i, p
		g.Go(func() error {
			rows[i] = domain.NewProjectSnapshot(p, s.Projects.FetchMetadata(ctx, p.ProjectID), syncedAt)
			return nil
		})
	}
	_ = g.Wait()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "project_id"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			}).Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("sync: upsert snapshots failed")
		return nil, err
	}
	log.Info().Int("count", len(rows)).Msg("sync: project snapshots stored")
	return map[string]interface{}{
		"success":  true,
		"count":    len(rows),
		"syncedAt": syncedAt,
	}, nil
}

// ListSnapshots returns stored snapshots, newest project first, optionally
// filtered by the state recorded at sync time.
func (s *Service) ListSnapshots(ctx context.Context, state string) (map[string]interface{}, error) {
	q := s.DB.WithContext(ctx)
	if state != "" {
		if !domain.LifecycleState(state).Valid() {
			return nil, ErrInvalidStateFilter
		}
		q = q.Where("state = ?", state)
	}
	var rows []domain.ProjectSnapshot
	if err := q.Order("project_id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]SnapshotView, 0, len(rows))
	for _, r := range rows {
		v := SnapshotView{ProjectSnapshot: r, CurrentState: r.State}
		if p, err := r.Project(); err == nil {
			v.CurrentState = domain.DeriveLifecycleState(p, now)
		} else {
			log.Warn().Err(err).Uint64("project_id", r.ProjectID).Msg("stored snapshot no longer validates")
		}
		out = append(out, v)
	}
	return map[string]interface{}{
		"snapshots": out,
		"total":     len(out),
	}, nil
}

// GetSnapshot returns the stored snapshot of one project.
func (s *Service) GetSnapshot(ctx context.Context, id uint64) (*domain.ProjectSnapshot, error) {
	var row domain.ProjectSnapshot
	if err := s.DB.WithContext(ctx).Where("project_id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return &row, nil
}
