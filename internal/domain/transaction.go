package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TxStatus tracks a relayed transaction until it is mined.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusReverted  TxStatus = "reverted"
)

// TransactionRecord is a wallet-signed transaction relayed through the API.
type TransactionRecord struct {
	TxID        uuid.UUID `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	Hash        string    `gorm:"column:hash;type:varchar(66);uniqueIndex;not null" json:"hash"`
	Action      Action    `gorm:"column:action;type:varchar(32);not null" json:"action"`
	ProjectID   *uint64   `gorm:"column:project_id;index" json:"project_id"`
	FromAddress string    `gorm:"column:from_address;type:varchar(42);index;not null" json:"from_address"`
	ToAddress   string    `gorm:"column:to_address;type:varchar(42);not null" json:"to_address"`
	Value       Amount    `gorm:"column:value;type:varchar(80);not null;default:'0'" json:"value"`
	Status      TxStatus  `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	BlockNumber *uint64   `gorm:"column:block_number" json:"block_number"`
	GasUsed     *uint64   `gorm:"column:gas_used" json:"gas_used"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
	ExplorerURL string    `gorm:"-" json:"explorer_url,omitempty"`
}

func (TransactionRecord) TableName() string {
	return "Transactions"
}

func (t *TransactionRecord) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
