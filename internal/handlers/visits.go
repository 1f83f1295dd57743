package handlers

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/models"
)

type VisitHandler struct {
	db *gorm.DB
}

func NewVisitHandler(db *gorm.DB) *VisitHandler {
	return &VisitHandler{db: db}
}

type visitPayload struct {
	VisitAt          *time.Time       `json:"visit_at"`
	WeightKg         *decimal.Decimal `json:"weight_kg" validate:"required"`
	OxygenSaturation *int             `json:"oxygen_saturation" validate:"required,gte=0,lte=100"`
	BPSystolic       *int             `json:"bp_systolic" validate:"required,gte=0"`
	BPDiastolic      *int             `json:"bp_diastolic" validate:"required,gte=0"`
	Diabetes         *decimal.Decimal `json:"diabetes"`
	Notes            string           `json:"notes"`
}

func (h *VisitHandler) patientExists(c echo.Context, id uint) error {
	var count int64
	if err := h.db.WithContext(c.Request().Context()).Model(&models.Patient{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errors.Wrapf(err, "find patient %d", id)
	}
	if count == 0 {
		return apperr.NotFound("patient", id)
	}
	return nil
}

// ListVisits lists a patient's vitals, latest first
func (h *VisitHandler) ListVisits(c echo.Context) error {
	patientID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.patientExists(c, patientID); err != nil {
		return err
	}

	var visits []models.Visit
	err = h.db.WithContext(c.Request().Context()).
		Where("patient_id = ?", patientID).
		Order("visit_at DESC").
		Find(&visits).Error
	if err != nil {
		return errors.Wrap(err, "list visits")
	}
	return ok(c, visits)
}

// StoreVisit records vitals for a patient; visit_at defaults to now
func (h *VisitHandler) StoreVisit(c echo.Context) error {
	patientID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload visitPayload
	if err := bindAndValidate(c, &payload, func(v *apperr.ValidationError) {
		nonNegative(v, "weight_kg", payload.WeightKg)
		nonNegative(v, "diabetes", payload.Diabetes)
	}); err != nil {
		return err
	}
	if err := h.patientExists(c, patientID); err != nil {
		return err
	}

	visit := models.Visit{
		PatientID:        patientID,
		VisitAt:          time.Now(),
		WeightKg:         *payload.WeightKg,
		OxygenSaturation: *payload.OxygenSaturation,
		BPSystolic:       *payload.BPSystolic,
		BPDiastolic:      *payload.BPDiastolic,
		Notes:            payload.Notes,
	}
	if payload.VisitAt != nil && !payload.VisitAt.IsZero() {
		visit.VisitAt = *payload.VisitAt
	}
	if payload.Diabetes != nil {
		visit.Diabetes = decimal.NewNullDecimal(*payload.Diabetes)
	}

	if err := h.db.WithContext(c.Request().Context()).Create(&visit).Error; err != nil {
		return errors.Wrap(err, "create visit")
	}
	return created(c, visit)
}
