package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStatus is the billing outcome of a record
type RecordStatus string

const (
	RecordStatusTrial RecordStatus = "Trial"
	RecordStatusPaid  RecordStatus = "Paid"
	RecordStatusVVIP  RecordStatus = "VVIP"
)

// Record is one billed treatment event for a patient.
// Price is always the sum of the pinned prices of its items.
type Record struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PatientID uint            `gorm:"index;not null" json:"patient_id"`
	Duration  int             `json:"duration"` // minutes, entered per visit
	Price     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	Status    RecordStatus    `gorm:"type:varchar(20);index" json:"status"`

	// Relationships
	Patient  *Patient        `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Products []RecordProduct `gorm:"foreignKey:RecordID" json:"products,omitempty"`
	Services []RecordService `gorm:"foreignKey:RecordID" json:"services,omitempty"`
}

// RecordProduct pins the price charged for a product on a record
type RecordProduct struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	RecordID  uint            `gorm:"index;not null" json:"record_id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// RecordService pins the price charged for a service on a record
type RecordService struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	RecordID  uint            `gorm:"index;not null" json:"record_id"`
	ServiceID uint            `gorm:"index;not null" json:"service_id"`
	Price     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`

	Service Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

// ItemsTotal sums the pinned prices of the record's products and services
func (r Record) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Products {
		total = total.Add(p.Price)
	}
	for _, s := range r.Services {
		total = total.Add(s.Price)
	}
	return total
}
