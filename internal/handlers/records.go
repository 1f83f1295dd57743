package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/billing"
	"clinic_app_echo/internal/models"
	"clinic_app_echo/internal/services"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	idempotencyWindow    = 10 * time.Minute
)

// Biller creates, edits and removes billed records
type Biller interface {
	Create(ctx context.Context, in billing.RecordInput) (*models.Record, error)
	Update(ctx context.Context, recordID uint, in billing.RecordInput) (*models.Record, error)
	Delete(ctx context.Context, recordID uint) error
}

type RecordHandler struct {
	db       *gorm.DB
	cache    *services.RedisCache
	biller   Biller
	cacheTTL time.Duration
}

func NewRecordHandler(db *gorm.DB, cache *services.RedisCache, biller Biller, cacheTTL time.Duration) *RecordHandler {
	return &RecordHandler{db: db, cache: cache, biller: biller, cacheTTL: cacheTTL}
}

type recordPayload struct {
	PatientID  uint             `json:"patient_id"`
	ProductIDs []uint           `json:"product_ids"`
	ServiceIDs []uint           `json:"service_ids"`
	Duration   int              `json:"duration"`
	Price      *decimal.Decimal `json:"price"`
}

func (p recordPayload) input() billing.RecordInput {
	return billing.RecordInput{
		PatientID:     p.PatientID,
		ProductIDs:    p.ProductIDs,
		ServiceIDs:    p.ServiceIDs,
		Duration:      p.Duration,
		OverridePrice: p.Price,
	}
}

// RecordOptions is what the record form offers to pick from
type RecordOptions struct {
	Patients []models.Patient `json:"patients"`
	Products []models.Product `json:"products"`
	Services []models.Service `json:"services"`
}

type catalogOptions struct {
	Products []models.Product `json:"products"`
	Services []models.Service `json:"services"`
}

func (h *RecordHandler) preloaded(ctx context.Context) *gorm.DB {
	return h.db.WithContext(ctx).
		Preload("Patient", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Products.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Services.Service", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

func (h *RecordHandler) filtered(ctx context.Context, c echo.Context) *gorm.DB {
	db := h.db.WithContext(ctx).Model(&models.Record{})
	if q := strings.TrimSpace(c.QueryParam("search")); q != "" {
		db = db.Where("patient_id IN (?)",
			h.db.Unscoped().Model(&models.Patient{}).Select("id").Where("name ILIKE ?", "%"+q+"%"))
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	return db
}

// ListRecords lists records latest first, searchable by patient name
func (h *RecordHandler) ListRecords(c echo.Context) error {
	ctx := c.Request().Context()
	page, perPage := parsePagination(c)

	var total int64
	if err := h.filtered(ctx, c).Count(&total).Error; err != nil {
		return errors.Wrap(err, "count records")
	}

	var records []models.Record
	err := h.preloaded(ctx).
		Where("id IN (?)", h.filtered(ctx, c).Select("id")).
		Order("created_at DESC").
		Offset(offset(page, perPage)).
		Limit(perPage).
		Find(&records).Error
	if err != nil {
		return errors.Wrap(err, "list records")
	}
	return paged(c, records, total, page, perPage)
}

// Options returns the patients, products and services the record form offers.
// The catalog part is cached; patients are read live since trials change per booking.
func (h *RecordHandler) Options(c echo.Context) error {
	ctx := c.Request().Context()

	catalog, err := services.GetOrSet(h.cache, ctx, services.RecordOptionsKey, h.cacheTTL, func() (catalogOptions, error) {
		out := catalogOptions{Products: []models.Product{}, Services: []models.Service{}}
		if err := h.db.WithContext(ctx).Order("name").Find(&out.Products).Error; err != nil {
			return out, errors.Wrap(err, "load products")
		}
		if err := h.db.WithContext(ctx).Order("name").Find(&out.Services).Error; err != nil {
			return out, errors.Wrap(err, "load services")
		}
		return out, nil
	})
	if err != nil {
		return err
	}

	patients := []models.Patient{}
	if err := h.db.WithContext(ctx).Order("name").Find(&patients).Error; err != nil {
		return errors.Wrap(err, "load patients")
	}

	return ok(c, RecordOptions{Patients: patients, Products: catalog.Products, Services: catalog.Services})
}

// StoreRecord bills a new record. A repeated Idempotency-Key inside the
// window is refused so a double submitted form does not bill twice.
func (h *RecordHandler) StoreRecord(c echo.Context) error {
	var payload recordPayload
	if err := bind(c, &payload); err != nil {
		return err
	}

	ctx := c.Request().Context()
	key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
	if key != "" && h.cache != nil {
		first, err := h.cache.ClaimIdempotencyKey(ctx, key, idempotencyWindow)
		if err != nil {
			// without redis we still bill, only the duplicate guard is lost
			zap.L().Warn("idempotency check failed", zap.String("key", key), zap.Error(err))
		} else if !first {
			return apperr.ErrConflict
		}
	}

	record, err := h.biller.Create(ctx, payload.input())
	if err != nil {
		if key != "" && h.cache != nil {
			if relErr := h.cache.ReleaseIdempotencyKey(ctx, key); relErr != nil {
				zap.L().Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
			}
		}
		return err
	}
	return created(c, record)
}

// UpdateRecord replaces a record's selection and re-prices it
func (h *RecordHandler) UpdateRecord(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload recordPayload
	if err := bind(c, &payload); err != nil {
		return err
	}

	record, err := h.biller.Update(c.Request().Context(), id, payload.input())
	if err != nil {
		return err
	}
	return ok(c, record)
}

// DeleteRecord removes a record with its items
func (h *RecordHandler) DeleteRecord(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.biller.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportRecords streams every record as CSV, oldest first
func (h *RecordHandler) ExportRecords(c echo.Context) error {
	var records []models.Record
	if err := h.preloaded(c.Request().Context()).Order("created_at").Find(&records).Error; err != nil {
		return errors.Wrap(err, "export records")
	}

	return writeCSV(c, "records", func(w *echo.Response) error {
		return services.WriteRecordsCSV(w, records)
	})
}
