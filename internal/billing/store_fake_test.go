package billing

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/models"
)

// memStore is an in-memory Store. Each operation is atomic on its own;
// Transaction undoes the operations of a failed unit in reverse order.
type memStore struct {
	mu       sync.Mutex
	patients map[uint]*models.Patient
	products map[uint]models.Product
	services map[uint]models.Service
	records  map[uint]*models.Record
	nextID   uint

	// afterFindPatient runs once the patient has been read, before it is returned
	afterFindPatient func()
	failCreate       error
	writes           int
}

func newMemStore() *memStore {
	return &memStore{
		patients: map[uint]*models.Patient{},
		products: map[uint]models.Product{},
		services: map[uint]models.Service{},
		records:  map[uint]*models.Record{},
	}
}

func (s *memStore) addPatient(p models.Patient) {
	s.patients[p.ID] = &p
}

func (s *memStore) addProduct(p models.Product) {
	s.products[p.ID] = p
}

func (s *memStore) addService(sv models.Service) {
	s.services[sv.ID] = sv
}

func (s *memStore) patient(id uint) models.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.patients[id]
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	tx := &memTx{memStore: s}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) FindPatient(ctx context.Context, id uint) (*models.Patient, error) {
	s.mu.Lock()
	p, ok := s.patients[id]
	var snapshot models.Patient
	if ok {
		snapshot = *p
	}
	s.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	if s.afterFindPatient != nil {
		s.afterFindPatient()
	}
	return &snapshot, nil
}

func (s *memStore) FindProducts(ctx context.Context, ids []uint) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) FindServices(ctx context.Context, ids []uint) ([]models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Service
	for _, id := range ids {
		if sv, ok := s.services[id]; ok {
			out = append(out, sv)
		}
	}
	return out, nil
}

func (s *memStore) ConsumeTrial(ctx context.Context, patientID uint) (bool, error) {
	return s.consumeTrial(patientID, nil)
}

func (s *memStore) consumeTrial(patientID uint, undo *[]func()) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[patientID]
	if !ok || p.FreeTrials <= 0 {
		return false, nil
	}
	p.FreeTrials--
	s.writes++
	if undo != nil {
		*undo = append(*undo, func() { p.FreeTrials++ })
	}
	return true, nil
}

func (s *memStore) FindRecord(ctx context.Context, id uint) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, apperr.NotFound("record", id)
	}
	clone := cloneRecord(r)
	return clone, nil
}

func (s *memStore) CreateRecord(ctx context.Context, record *models.Record) error {
	return s.createRecord(record, nil)
}

func (s *memStore) createRecord(record *models.Record, undo *[]func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	s.nextID++
	record.ID = s.nextID
	s.records[record.ID] = cloneRecord(record)
	s.writes++
	if undo != nil {
		id := record.ID
		*undo = append(*undo, func() { delete(s.records, id) })
	}
	return nil
}

func (s *memStore) ReplaceRecord(ctx context.Context, record *models.Record) error {
	return s.replaceRecord(record, nil)
}

func (s *memStore) replaceRecord(record *models.Record, undo *[]func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.records[record.ID]
	if !ok {
		return apperr.NotFound("record", record.ID)
	}
	s.records[record.ID] = cloneRecord(record)
	s.writes++
	if undo != nil {
		*undo = append(*undo, func() { s.records[previous.ID] = previous })
	}
	return nil
}

func (s *memStore) DeleteRecord(ctx context.Context, id uint) error {
	return s.deleteRecord(id, nil)
}

func (s *memStore) deleteRecord(id uint, undo *[]func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.records[id]
	if !ok {
		return apperr.NotFound("record", id)
	}
	delete(s.records, id)
	s.writes++
	if undo != nil {
		*undo = append(*undo, func() { s.records[id] = previous })
	}
	return nil
}

func (s *memStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func cloneRecord(r *models.Record) *models.Record {
	clone := *r
	clone.Products = append([]models.RecordProduct(nil), r.Products...)
	clone.Services = append([]models.RecordService(nil), r.Services...)
	return &clone
}

// memTx journals writes so a failed transaction can be undone
type memTx struct {
	*memStore
	undo []func()
}

func (tx *memTx) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return errors.New("nested transaction")
}

func (tx *memTx) ConsumeTrial(ctx context.Context, patientID uint) (bool, error) {
	return tx.consumeTrial(patientID, &tx.undo)
}

func (tx *memTx) CreateRecord(ctx context.Context, record *models.Record) error {
	return tx.createRecord(record, &tx.undo)
}

func (tx *memTx) ReplaceRecord(ctx context.Context, record *models.Record) error {
	return tx.replaceRecord(record, &tx.undo)
}

func (tx *memTx) DeleteRecord(ctx context.Context, id uint) error {
	return tx.deleteRecord(id, &tx.undo)
}

// countingObserver tallies billing events
type countingObserver struct {
	mu       sync.Mutex
	created  map[models.RecordStatus]int
	consumed int
	missed   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{created: map[models.RecordStatus]int{}}
}

func (o *countingObserver) RecordCreated(status models.RecordStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created[status]++
}

func (o *countingObserver) TrialConsumed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumed++
}

func (o *countingObserver) TrialGuardMissed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.missed++
}
