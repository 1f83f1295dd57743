package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a billable catalog item with a flat price and a nominal duration
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name        string          `gorm:"type:varchar(255)" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	Duration    int             `json:"duration"` // minutes
	Description string          `gorm:"type:text" json:"description"`

	// Relationships
	Services []Service `gorm:"many2many:product_service;" json:"services,omitempty"`
}

// Service is an add-on catalog item that can be billed alongside products
type Service struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name         string          `gorm:"type:varchar(255)" json:"name"`
	ServicePrice decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"service_price"`

	// Relationships
	Products []Product `gorm:"many2many:product_service;" json:"products,omitempty"`
}
