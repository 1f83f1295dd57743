package billing

import (
	"context"

	"clinic_app_echo/internal/models"
)

// Store is the persistence port of the billing engine. Lookups of missing
// patients and records return an *apperr.NotFoundError; catalog lookups
// return only the rows that exist.
type Store interface {
	// Transaction runs fn in one atomic unit; any error rolls everything back
	Transaction(ctx context.Context, fn func(tx Store) error) error

	FindPatient(ctx context.Context, id uint) (*models.Patient, error)
	FindProducts(ctx context.Context, ids []uint) ([]models.Product, error)
	FindServices(ctx context.Context, ids []uint) ([]models.Service, error)

	// ConsumeTrial decrements free_trials only while it is positive and
	// reports whether a trial was taken
	ConsumeTrial(ctx context.Context, patientID uint) (bool, error)

	FindRecord(ctx context.Context, id uint) (*models.Record, error)
	// CreateRecord inserts the record and its priced items
	CreateRecord(ctx context.Context, record *models.Record) error
	// ReplaceRecord saves the record and swaps its items for record.Products/Services
	ReplaceRecord(ctx context.Context, record *models.Record) error
	// DeleteRecord removes the record and its items
	DeleteRecord(ctx context.Context, id uint) error
}

// Observer receives billing events, typically for metrics
type Observer interface {
	RecordCreated(status models.RecordStatus)
	TrialConsumed()
	TrialGuardMissed()
}

type nopObserver struct{}

func (nopObserver) RecordCreated(models.RecordStatus) {}
func (nopObserver) TrialConsumed()                   {}
func (nopObserver) TrialGuardMissed()                {}
