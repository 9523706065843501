package domain

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectSnapshot is the last synced copy of an on-chain project, kept for
// reporting. Request paths read the chain, not this table.
type ProjectSnapshot struct {
	SnapshotID             uuid.UUID      `gorm:"column:snapshot_id;type:uuid;primaryKey" json:"snapshot_id"`
	ProjectID              uint64         `gorm:"column:project_id;uniqueIndex;not null" json:"project_id"`
	Builder                string         `gorm:"column:builder;type:varchar(42);index;not null" json:"builder"`
	CurrentAmount          Amount         `gorm:"column:current_amount;type:varchar(80);not null" json:"current_amount"`
	GoalAmount             Amount         `gorm:"column:goal_amount;type:varchar(80);not null" json:"goal_amount"`
	SaleAmount             Amount         `gorm:"column:sale_amount;type:varchar(80);not null" json:"sale_amount"`
	ExpectedProfit         uint64         `gorm:"column:expected_profit;not null" json:"expected_profit"`
	BuilderFee             uint64         `gorm:"column:builder_fee;not null;default:0" json:"builder_fee"`
	CurrentShares          uint64         `gorm:"column:current_shares;not null" json:"current_shares"`
	TotalShares            uint64         `gorm:"column:total_shares;not null" json:"total_shares"`
	FundraisingDeadline    int64          `gorm:"column:fundraising_deadline;not null" json:"fundraising_deadline"`
	FundraisingCompletedOn int64          `gorm:"column:fundraising_completed_on;not null;default:0" json:"fundraising_completed_on"`
	BuildingStartedOn      int64          `gorm:"column:building_started_on;not null;default:0" json:"building_started_on"`
	BuildingCompletedOn    int64          `gorm:"column:building_completed_on;not null;default:0" json:"building_completed_on"`
	State                  LifecycleState `gorm:"column:state;type:varchar(20);not null" json:"state"`
	Metadata               datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	SyncedAt               time.Time      `gorm:"column:syncedAt;not null" json:"syncedAt"`
	CreatedAt              time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt              time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (ProjectSnapshot) TableName() string {
	return "ProjectSnapshots"
}

// BeforeCreate: never insert zero UUID for primary key.
func (s *ProjectSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.SnapshotID == uuid.Nil {
		s.SnapshotID = uuid.New()
	}
	return nil
}

// NewProjectSnapshot captures p as seen at syncedAt. meta may be nil.
func NewProjectSnapshot(p Project, meta *Metadata, syncedAt time.Time) ProjectSnapshot {
	s := ProjectSnapshot{
		ProjectID:              p.ProjectID,
		Builder:                p.Builder.Hex(),
		CurrentAmount:          NewAmount(p.CurrentAmount),
		GoalAmount:             NewAmount(p.GoalAmount),
		SaleAmount:             NewAmount(p.SaleAmount),
		ExpectedProfit:         p.ExpectedProfit,
		BuilderFee:             p.BuilderFee,
		CurrentShares:          p.CurrentShares,
		TotalShares:            p.TotalShares,
		FundraisingDeadline:    p.FundraisingDeadline,
		FundraisingCompletedOn: p.FundraisingCompletedOn,
		BuildingStartedOn:      p.BuildingStartedOn,
		BuildingCompletedOn:    p.BuildingCompletedOn,
		State:                  DeriveLifecycleState(p, syncedAt),
		SyncedAt:               syncedAt,
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			s.Metadata = datatypes.JSON(b)
		}
	}
	return s
}

// Project rebuilds the validated snapshot.
func (s ProjectSnapshot) Project() (Project, error) {
	current, err := s.CurrentAmount.Big()
	if err != nil {
		return Project{}, err
	}
	goal, err := s.GoalAmount.Big()
	if err != nil {
		return Project{}, err
	}
	sale, err := s.SaleAmount.Big()
	if err != nil {
		return Project{}, err
	}
	return NewProject(Project{
		ProjectID:              s.ProjectID,
		Builder:                common.HexToAddress(s.Builder),
		CurrentAmount:          current,
		GoalAmount:             goal,
		SaleAmount:             sale,
		ExpectedProfit:         s.ExpectedProfit,
		BuilderFee:             s.BuilderFee,
		CurrentShares:          s.CurrentShares,
		TotalShares:            s.TotalShares,
		FundraisingDeadline:    s.FundraisingDeadline,
		FundraisingCompletedOn: s.FundraisingCompletedOn,
		BuildingStartedOn:      s.BuildingStartedOn,
		BuildingCompletedOn:    s.BuildingCompletedOn,
	})
}
