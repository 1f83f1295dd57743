package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// DefaultFreeTrials is the number of free sessions granted on registration
const DefaultFreeTrials = 3

// PatientRole is the billing role of a patient
type PatientRole string

const (
	PatientRoleStandard PatientRole = "standard"
	PatientRoleVVIP     PatientRole = "vvip"
)

// ParseRole maps free-text role input onto the closed role set.
// Empty input is standard; the match is case-insensitive.
func ParseRole(value string) (PatientRole, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(PatientRoleStandard):
		return PatientRoleStandard, true
	case string(PatientRoleVVIP):
		return PatientRoleVVIP, true
	default:
		return "", false
	}
}

// Patient represents a registered clinic patient
type Patient struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name       string      `gorm:"type:varchar(255);index" json:"name"`
	Phone      string      `gorm:"type:varchar(20)" json:"phone"`
	Town       string      `gorm:"type:varchar(255);index" json:"town"`
	Age        int         `json:"age"`
	Role       PatientRole `gorm:"type:varchar(20);default:'standard'" json:"role"`
	FreeTrials int         `gorm:"not null;default:3;check:free_trials >= 0" json:"free_trials"`

	// Relationships
	Records []Record `gorm:"foreignKey:PatientID" json:"records,omitempty"`
	Visits  []Visit  `gorm:"foreignKey:PatientID" json:"visits,omitempty"`
}

// IsVVIP reports whether the patient holds the VVIP role
func (p Patient) IsVVIP() bool {
	return p.Role == PatientRoleVVIP
}
