package snapshots

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	projectsvc "houseform-api/internal/application/projects"
	"houseform-api/internal/domain"
	"houseform-api/internal/infrastructure/chain/chaintest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	builder = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	now     = time.Unix(1_800_000_000, 0)
)

type metaStub struct{}

func (metaStub) Fetch(ctx context.Context, uri string) (*domain.Metadata, error) {
	return &domain.Metadata{Name: "Project " + uri}, nil
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func project(id uint64) domain.Project {
	return domain.Project{
		ProjectID: id, Builder: builder,
		CurrentAmount: eth(40), GoalAmount: eth(100), SaleAmount: big.NewInt(0),
		ExpectedProfit: 20, CurrentShares: 4, TotalShares: 10,
		FundraisingDeadline: now.Unix() + 3600,
	}
}

func setup(t *testing.T) (*Service, *chaintest.Backend) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ProjectSnapshot{}))
	b := chaintest.NewBackend()
	clock := func() time.Time { return now }
	ps := &projectsvc.Service{Chain: b.Client(), Metadata: metaStub{}, Now: clock}
	return &Service{DB: db, Projects: ps, Now: clock}, b
}

func TestSyncProjects_Upserts(t *testing.T) {
	svc, b := setup(t)
	ctx := context.Background()

	out, err := svc.SyncProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, out["count"])

	b.AddProject(project(0))
	b.AddProject(project(1))
	b.URIs[0] = "u0"

	out, err = svc.SyncProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, out["count"])

	updated := project(1)
	updated.CurrentAmount, updated.CurrentShares = eth(100), 10
	updated.FundraisingCompletedOn = now.Unix() - 10
	b.AddProject(updated)

	_, err = svc.SyncProjects(ctx)
	require.NoError(t, err)

	var count int64
	require.NoError(t, svc.DB.Model(&domain.ProjectSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	snap, err := svc.GetSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePreparing, snap.State)
	assert.Equal(t, uint64(10), snap.CurrentShares)
	assert.Equal(t, domain.NewAmount(eth(100)), snap.CurrentAmount)

	snap, err = svc.GetSnapshot(ctx, 0)
	require.NoError(t, err)
	var meta domain.Metadata
	require.NoError(t, json.Unmarshal(snap.Metadata, &meta))
	assert.Equal(t, "Project u0", meta.Name)

	_, err = svc.GetSnapshot(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestListSnapshots(t *testing.T) {
	svc, b := setup(t)
	ctx := context.Background()
	b.AddProject(project(0))
	b.AddProject(project(1))
	_, err := svc.SyncProjects(ctx)
	require.NoError(t, err)

	out, err := svc.ListSnapshots(ctx, "")
	require.NoError(t, err)
	views := out["snapshots"].([]SnapshotView)
	require.Len(t, views, 2)
	assert.Equal(t, uint64(1), views[0].ProjectID)
	assert.Equal(t, domain.StateFundraising, views[0].CurrentState)

	// two hours later the deadline has passed
	svc.Now = func() time.Time { return now.Add(2 * time.Hour) }
	out, err = svc.ListSnapshots(ctx, "fundraising")
	require.NoError(t, err)
	views = out["snapshots"].([]SnapshotView)
	require.Len(t, views, 2)
	assert.Equal(t, domain.StateExpired, views[0].CurrentState)

	out, err = svc.ListSnapshots(ctx, "completed")
	require.NoError(t, err)
	assert.Equal(t, 0, out["total"])

	_, err = svc.ListSnapshots(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidStateFilter)
}
