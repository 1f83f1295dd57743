package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DailySummary is a stored snapshot of one day of dashboard figures
type DailySummary struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Date        string          `gorm:"type:varchar(10);uniqueIndex" json:"date"` // YYYY-MM-DD
	Income      decimal.Decimal `gorm:"type:decimal(15,2)" json:"income"`
	Expense     decimal.Decimal `gorm:"type:decimal(15,2)" json:"expense"`
	Net         decimal.Decimal `gorm:"type:decimal(15,2)" json:"net"`
	RecordCount int64           `json:"record_count"`
	Breakdown   datatypes.JSON  `gorm:"type:jsonb" json:"breakdown"`
}
