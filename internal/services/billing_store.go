package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/billing"
	"clinic_app_echo/internal/models"
)

// BillingStore is the gorm implementation of billing.Store
type BillingStore struct {
	db *gorm.DB
}

func NewBillingStore(db *gorm.DB) *BillingStore {
	return &BillingStore{db: db}
}

var _ billing.Store = (*BillingStore)(nil)

func (s *BillingStore) Transaction(ctx context.Context, fn func(tx billing.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BillingStore{db: tx})
	})
}

func (s *BillingStore) FindPatient(ctx context.Context, id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.WithContext(ctx).First(&patient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("patient", id)
		}
		return nil, errors.Wrapf(err, "find patient %d", id)
	}
	return &patient, nil
}

func (s *BillingStore) FindProducts(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	return products, nil
}

func (s *BillingStore) FindServices(ctx context.Context, ids []uint) ([]models.Service, error) {
	var services []models.Service
	if len(ids) == 0 {
		return services, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&services).Error; err != nil {
		return nil, errors.Wrap(err, "find services")
	}
	return services, nil
}

// ConsumeTrial takes one trial with a conditional decrement so concurrent
// bookings cannot drive free_trials below zero.
func (s *BillingStore) ConsumeTrial(ctx context.Context, patientID uint) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("id = ? AND free_trials > 0", patientID).
		UpdateColumn("free_trials", gorm.Expr("free_trials - 1"))
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "consume trial of patient %d", patientID)
	}
	return result.RowsAffected == 1, nil
}

func (s *BillingStore) FindRecord(ctx context.Context, id uint) (*models.Record, error) {
	var record models.Record
	err := s.db.WithContext(ctx).
		Preload("Products").
		Preload("Services").
		First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("record", id)
		}
		return nil, errors.Wrapf(err, "find record %d", id)
	}
	return &record, nil
}

func (s *BillingStore) CreateRecord(ctx context.Context, record *models.Record) error {
	// items carry their catalog rows for the response; only the join rows are written
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Create(record).Error
	if err != nil {
		return errors.Wrap(err, "create record")
	}
	return s.insertItems(ctx, record)
}

func (s *BillingStore) ReplaceRecord(ctx context.Context, record *models.Record) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("record_id = ?", record.ID).Delete(&models.RecordProduct{}).Error; err != nil {
		return errors.Wrap(err, "clear record products")
	}
	if err := db.Where("record_id = ?", record.ID).Delete(&models.RecordService{}).Error; err != nil {
		return errors.Wrap(err, "clear record services")
	}

	err := db.Model(&models.Record{ID: record.ID}).
		Updates(map[string]interface{}{
			"patient_id": record.PatientID,
			"duration":   record.Duration,
			"price":      record.Price,
			"status":     record.Status,
		}).Error
	if err != nil {
		return errors.Wrapf(err, "update record %d", record.ID)
	}
	return s.insertItems(ctx, record)
}

func (s *BillingStore) DeleteRecord(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("record_id = ?", id).Delete(&models.RecordProduct{}).Error; err != nil {
		return errors.Wrap(err, "delete record products")
	}
	if err := db.Where("record_id = ?", id).Delete(&models.RecordService{}).Error; err != nil {
		return errors.Wrap(err, "delete record services")
	}
	if err := db.Delete(&models.Record{}, id).Error; err != nil {
		return errors.Wrapf(err, "delete record %d", id)
	}
	return nil
}

func (s *BillingStore) insertItems(ctx context.Context, record *models.Record) error {
	db := s.db.WithContext(ctx).Omit(clause.Associations)
	for i := range record.Products {
		record.Products[i].ID = 0
		record.Products[i].RecordID = record.ID
	}
	for i := range record.Services {
		record.Services[i].ID = 0
		record.Services[i].RecordID = record.ID
	}
	if len(record.Products) > 0 {
		if err := db.Create(&record.Products).Error; err != nil {
			return errors.Wrap(err, "insert record products")
		}
	}
	if len(record.Services) > 0 {
		if err := db.Create(&record.Services).Error; err != nil {
			return errors.Wrap(err, "insert record services")
		}
	}
	return nil
}
