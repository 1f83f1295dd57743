package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Visit is a vitals log entry taken when a patient comes in
type Visit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PatientID        uint                `gorm:"index;not null" json:"patient_id"`
	VisitAt          time.Time           `gorm:"index" json:"visit_at"`
	WeightKg         decimal.Decimal     `gorm:"type:decimal(5,2)" json:"weight_kg"`
	OxygenSaturation int                 `json:"oxygen_saturation"` // percent, 0-100
	BPSystolic       int                 `gorm:"column:bp_systolic" json:"bp_systolic"`
	BPDiastolic      int                 `gorm:"column:bp_diastolic" json:"bp_diastolic"`
	Diabetes         decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"diabetes"`
	Notes            string              `gorm:"type:text" json:"notes"`

	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
}
