package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a standalone ledger entry, not tied to a patient
type Expense struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Amount  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Remarks string          `gorm:"type:text" json:"remarks"`
}
