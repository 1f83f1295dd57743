// Package billing decides how a treatment record is charged and persists it
// together with its priced product and service items.
package billing

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/models"
)

// RecordInput is the selection submitted when a record is created or edited
type RecordInput struct {
	PatientID     uint
	ProductIDs    []uint
	ServiceIDs    []uint
	Duration      int
	OverridePrice *decimal.Decimal
}

// Validate checks the input shape before any lookup happens
func (in RecordInput) Validate() error {
	v := &apperr.ValidationError{}
	if in.PatientID == 0 {
		v.Add("patient_id", "patient is required")
	}
	if len(in.ProductIDs) == 0 {
		v.Add("product_ids", "at least one product is required")
	}
	if in.Duration <= 0 {
		v.Add("duration", "duration must be a positive number of minutes")
	}
	if in.OverridePrice != nil {
		if in.OverridePrice.IsNegative() {
			v.Add("price", "price must not be negative")
		}
		if len(uniqueIDs(in.ProductIDs)) != 1 || len(in.ServiceIDs) > 0 {
			v.Add("price", "price override applies to a single product without services")
		}
	}
	return v.OrNil()
}

// Engine bills and stores treatment records
type Engine struct {
	store    Store
	policy   VVIPPolicy
	observer Observer
}

// NewEngine creates a billing engine; a nil observer discards events
func NewEngine(store Store, policy VVIPPolicy, observer Observer) *Engine {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{store: store, policy: policy, observer: observer}
}

// Policy returns the VVIP policy the engine bills with
func (e *Engine) Policy() VVIPPolicy {
	return e.policy
}

// Create bills a new record. All references are resolved before anything is
// written, and the trial decrement commits or rolls back with the record.
func (e *Engine) Create(ctx context.Context, in RecordInput) (*models.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		record      *models.Record
		consumed    bool
		guardMissed bool
	)
	err := e.store.Transaction(ctx, func(tx Store) error {
		patient, products, services, err := resolve(ctx, tx, in)
		if err != nil {
			return err
		}

		decision := Decide(*patient, e.policy)
		if decision.ConsumeTrial {
			ok, err := tx.ConsumeTrial(ctx, patient.ID)
			if err != nil {
				return err
			}
			if ok {
				consumed = true
			} else {
				// another booking took the last trial since we read the patient
				guardMissed = true
				decision = Decision{Status: models.RecordStatusPaid}
			}
		}

		items, extras, total := PriceItems(decision.Status, products, services, in.OverridePrice)
		record = &models.Record{
			PatientID: patient.ID,
			Duration:  in.Duration,
			Price:     total,
			Status:    decision.Status,
			Products:  items,
			Services:  extras,
		}
		return tx.CreateRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	if guardMissed {
		e.observer.TrialGuardMissed()
	}
	if consumed {
		e.observer.TrialConsumed()
	}
	e.observer.RecordCreated(record.Status)

	zap.L().Info("record created",
		zap.Uint("record_id", record.ID),
		zap.Uint("patient_id", record.PatientID),
		zap.String("status", string(record.Status)),
		zap.String("price", record.Price.StringFixed(2)),
	)
	return record, nil
}

// Update replaces a record's selection. Items are re-priced from the current
// catalog; the record is forced to Paid unless the patient is VVIP or still
// has trials, in which case it keeps its status. Trials are never consumed.
func (e *Engine) Update(ctx context.Context, recordID uint, in RecordInput) (*models.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var record *models.Record
	err := e.store.Transaction(ctx, func(tx Store) error {
		existing, err := tx.FindRecord(ctx, recordID)
		if err != nil {
			return err
		}
		patient, products, services, err := resolve(ctx, tx, in)
		if err != nil {
			return err
		}

		status := models.RecordStatusPaid
		if KeepsStatusOnUpdate(*patient, e.policy) {
			status = existing.Status
		}

		items, extras, total := PriceItems(status, products, services, in.OverridePrice)
		existing.PatientID = patient.ID
		existing.Duration = in.Duration
		existing.Status = status
		existing.Price = total
		existing.Products = items
		existing.Services = extras
		record = existing
		return tx.ReplaceRecord(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("record updated",
		zap.Uint("record_id", record.ID),
		zap.String("status", string(record.Status)),
		zap.String("price", record.Price.StringFixed(2)),
	)
	return record, nil
}

// Delete removes a record and its items
func (e *Engine) Delete(ctx context.Context, recordID uint) error {
	return e.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.FindRecord(ctx, recordID); err != nil {
			return err
		}
		return tx.DeleteRecord(ctx, recordID)
	})
}

func resolve(ctx context.Context, tx Store, in RecordInput) (*models.Patient, []models.Product, []models.Service, error) {
	patient, err := tx.FindPatient(ctx, in.PatientID)
	if err != nil {
		return nil, nil, nil, err
	}

	productIDs := uniqueIDs(in.ProductIDs)
	found, err := tx.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	byProduct := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byProduct[p.ID] = p
	}
	products := make([]models.Product, 0, len(productIDs))
	for _, id := range productIDs {
		p, ok := byProduct[id]
		if !ok {
			return nil, nil, nil, apperr.NotFound("product", id)
		}
		products = append(products, p)
	}

	serviceIDs := uniqueIDs(in.ServiceIDs)
	var services []models.Service
	if len(serviceIDs) > 0 {
		foundServices, err := tx.FindServices(ctx, serviceIDs)
		if err != nil {
			return nil, nil, nil, err
		}
		byService := make(map[uint]models.Service, len(foundServices))
		for _, s := range foundServices {
			byService[s.ID] = s
		}
		for _, id := range serviceIDs {
			s, ok := byService[id]
			if !ok {
				return nil, nil, nil, apperr.NotFound("service", id)
			}
			services = append(services, s)
		}
	}

	return patient, products, services, nil
}

// uniqueIDs drops duplicates while keeping the first occurrence order
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
