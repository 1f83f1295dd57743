package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/models"
)

type PatientHandler struct {
	db *gorm.DB
}

func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{db: db}
}

type patientPayload struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"required,max=20"`
	Town  string `json:"town" validate:"required,max=255,town"`
	Age   *int   `json:"age" validate:"required,gte=0,lte=120"`
	Role  string `json:"role" validate:"role"`
}

func (p *patientPayload) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Town = strings.TrimSpace(p.Town)
}

// PatientFilters lists the distinct values the patient list can be filtered by
type PatientFilters struct {
	Towns []string `json:"towns"`
	Ages  []int    `json:"ages"`
}

// ListPatients lists patients, optionally searched by name and filtered by town and age
func (h *PatientHandler) ListPatients(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := h.db.WithContext(c.Request().Context()).Model(&models.Patient{})
	if q := strings.TrimSpace(c.QueryParam("search")); q != "" {
		db = db.Where("name ILIKE ?", "%"+q+"%")
	}
	if town := strings.TrimSpace(c.QueryParam("town")); town != "" {
		db = db.Where("town = ?", town)
	}
	if ageStr := strings.TrimSpace(c.QueryParam("age")); ageStr != "" {
		age, err := cast.ToIntE(ageStr)
		if err != nil {
			return apperr.Invalid("age", "must be a number")
		}
		db = db.Where("age = ?", age)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return errors.Wrap(err, "count patients")
	}

	var patients []models.Patient
	if err := db.Order("created_at DESC").Offset(offset(page, perPage)).Limit(perPage).Find(&patients).Error; err != nil {
		return errors.Wrap(err, "list patients")
	}

	return paged(c, patients, total, page, perPage)
}

// Filters returns the distinct towns and ages of registered patients
func (h *PatientHandler) Filters(c echo.Context) error {
	db := h.db.WithContext(c.Request().Context()).Model(&models.Patient{})

	filters := PatientFilters{Towns: []string{}, Ages: []int{}}
	if err := db.Distinct().Order("town").Pluck("town", &filters.Towns).Error; err != nil {
		return errors.Wrap(err, "distinct towns")
	}
	if err := h.db.WithContext(c.Request().Context()).Model(&models.Patient{}).
		Distinct().Order("age").Pluck("age", &filters.Ages).Error; err != nil {
		return errors.Wrap(err, "distinct ages")
	}
	return ok(c, filters)
}

// ShowPatient returns one patient with its records and visits
func (h *PatientHandler) ShowPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var patient models.Patient
	err = h.db.WithContext(c.Request().Context()).
		Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Records.Products.Product").
		Preload("Records.Services.Service").
		Preload("Visits", func(db *gorm.DB) *gorm.DB { return db.Order("visit_at DESC") }).
		First(&patient, id).Error
	if err != nil {
		return findError(err, "patient", id)
	}
	return ok(c, patient)
}

// StorePatient registers a patient with the default number of free trials
func (h *PatientHandler) StorePatient(c echo.Context) error {
	var payload patientPayload
	if err := bindAndValidate(c, &payload, nil); err != nil {
		return err
	}
	payload.normalize()
	role, _ := models.ParseRole(payload.Role)

	patient := models.Patient{
		Name:       payload.Name,
		Phone:      payload.Phone,
		Town:       payload.Town,
		Age:        *payload.Age,
		Role:       role,
		FreeTrials: models.DefaultFreeTrials,
	}
	if err := h.db.WithContext(c.Request().Context()).Create(&patient).Error; err != nil {
		return errors.Wrap(err, "create patient")
	}

	zap.L().Info("patient registered", zap.Uint("patient_id", patient.ID), zap.String("role", string(role)))
	return created(c, patient)
}

// UpdatePatient edits the registration details; free trials are left alone
func (h *PatientHandler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload patientPayload
	if err := bindAndValidate(c, &payload, nil); err != nil {
		return err
	}
	payload.normalize()
	role, _ := models.ParseRole(payload.Role)

	ctx := c.Request().Context()
	var patient models.Patient
	if err := h.db.WithContext(ctx).First(&patient, id).Error; err != nil {
		return findError(err, "patient", id)
	}

	patient.Name = payload.Name
	patient.Phone = payload.Phone
	patient.Town = payload.Town
	patient.Age = *payload.Age
	patient.Role = role

	err = h.db.WithContext(ctx).Model(&patient).
		Select("name", "phone", "town", "age", "role").
		Updates(&patient).Error
	if err != nil {
		return errors.Wrapf(err, "update patient %d", id)
	}
	return ok(c, patient)
}

// DeletePatient soft-deletes a patient; their records stay in the books
func (h *PatientHandler) DeletePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	result := h.db.WithContext(c.Request().Context()).Delete(&models.Patient{}, id)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "delete patient %d", id)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("patient", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// findError turns gorm's not-found into the application error
func findError(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return errors.Wrapf(err, "find %s %d", entity, id)
}
