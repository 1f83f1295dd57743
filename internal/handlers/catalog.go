package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/models"
	"clinic_app_echo/internal/services"
)

// CatalogHandler manages products and add-on services. Every write drops the
// cached record form options.
type CatalogHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewCatalogHandler(db *gorm.DB, cache *services.RedisCache) *CatalogHandler {
	return &CatalogHandler{db: db, cache: cache}
}

type productPayload struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Duration    int              `json:"duration" validate:"required,gt=0"`
	Description string           `json:"description" validate:"required"`
	ServiceIDs  []uint           `json:"service_ids"`
}

type servicePayload struct {
	Name         string           `json:"name" validate:"required,max=255"`
	ServicePrice *decimal.Decimal `json:"service_price" validate:"required"`
}

func nonNegative(v *apperr.ValidationError, field string, amount *decimal.Decimal) {
	if amount != nil && amount.IsNegative() {
		v.Add(field, "must be greater than or equal to 0")
	}
}

func (h *CatalogHandler) invalidate(ctx context.Context) {
	if err := h.cache.Delete(ctx, services.RecordOptionsKey); err != nil {
		zap.L().Warn("failed to invalidate record options cache", zap.Error(err))
	}
}

// ListProducts lists products with their linked services
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	page, perPage := parsePagination(c)
	db := h.db.WithContext(c.Request().Context()).Model(&models.Product{})
	if q := strings.TrimSpace(c.QueryParam("search")); q != "" {
		db = db.Where("name ILIKE ?", "%"+q+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return errors.Wrap(err, "count products")
	}

	var products []models.Product
	if err := db.Preload("Services").Order("name").Offset(offset(page, perPage)).Limit(perPage).Find(&products).Error; err != nil {
		return errors.Wrap(err, "list products")
	}
	return paged(c, products, total, page, perPage)
}

func (h *CatalogHandler) ShowProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var product models.Product
	if err := h.db.WithContext(c.Request().Context()).Preload("Services").First(&product, id).Error; err != nil {
		return findError(err, "product", id)
	}
	return ok(c, product)
}

func (h *CatalogHandler) StoreProduct(c echo.Context) error {
	var payload productPayload
	if err := bindAndValidate(c, &payload, func(v *apperr.ValidationError) {
		nonNegative(v, "price", payload.Price)
	}); err != nil {
		return err
	}

	product := models.Product{
		Name:        strings.TrimSpace(payload.Name),
		Price:       *payload.Price,
		Duration:    payload.Duration,
		Description: payload.Description,
	}

	ctx := c.Request().Context()
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		linked, err := findServices(tx, payload.ServiceIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit("Services").Create(&product).Error; err != nil {
			return errors.Wrap(err, "create product")
		}
		if len(linked) > 0 {
			if err := tx.Model(&product).Association("Services").Replace(linked); err != nil {
				return errors.Wrap(err, "link product services")
			}
		}
		product.Services = linked
		return nil
	})
	if err != nil {
		return err
	}

	h.invalidate(ctx)
	return created(c, product)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload productPayload
	if err := bindAndValidate(c, &payload, func(v *apperr.ValidationError) {
		nonNegative(v, "price", payload.Price)
	}); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var product models.Product
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return findError(err, "product", id)
		}
		linked, err := findServices(tx, payload.ServiceIDs)
		if err != nil {
			return err
		}

		product.Name = strings.TrimSpace(payload.Name)
		product.Price = *payload.Price
		product.Duration = payload.Duration
		product.Description = payload.Description
		if err := tx.Model(&product).Select("name", "price", "duration", "description").Updates(&product).Error; err != nil {
			return errors.Wrapf(err, "update product %d", id)
		}

		// Replace the service links wholesale
		if err := tx.Model(&product).Association("Services").Replace(linked); err != nil {
			return errors.Wrap(err, "sync product services")
		}
		product.Services = linked
		return nil
	})
	if err != nil {
		return err
	}

	h.invalidate(ctx)
	return ok(c, product)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	result := h.db.WithContext(ctx).Delete(&models.Product{}, id)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "delete product %d", id)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("product", id)
	}

	h.invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) ListServices(c echo.Context) error {
	page, perPage := parsePagination(c)
	db := h.db.WithContext(c.Request().Context()).Model(&models.Service{})
	if q := strings.TrimSpace(c.QueryParam("search")); q != "" {
		db = db.Where("name ILIKE ?", "%"+q+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return errors.Wrap(err, "count services")
	}

	var list []models.Service
	if err := db.Order("name").Offset(offset(page, perPage)).Limit(perPage).Find(&list).Error; err != nil {
		return errors.Wrap(err, "list services")
	}
	return paged(c, list, total, page, perPage)
}

func (h *CatalogHandler) ShowService(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var service models.Service
	if err := h.db.WithContext(c.Request().Context()).Preload("Products").First(&service, id).Error; err != nil {
		return findError(err, "service", id)
	}
	return ok(c, service)
}

func (h *CatalogHandler) StoreService(c echo.Context) error {
	var payload servicePayload
	if err := bindAndValidate(c, &payload, func(v *apperr.ValidationError) {
		nonNegative(v, "service_price", payload.ServicePrice)
	}); err != nil {
		return err
	}

	service := models.Service{
		Name:         strings.TrimSpace(payload.Name),
		ServicePrice: *payload.ServicePrice,
	}
	ctx := c.Request().Context()
	if err := h.db.WithContext(ctx).Create(&service).Error; err != nil {
		return errors.Wrap(err, "create service")
	}

	h.invalidate(ctx)
	return created(c, service)
}

func (h *CatalogHandler) UpdateService(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload servicePayload
	if err := bindAndValidate(c, &payload, func(v *apperr.ValidationError) {
		nonNegative(v, "service_price", payload.ServicePrice)
	}); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var service models.Service
	if err := h.db.WithContext(ctx).First(&service, id).Error; err != nil {
		return findError(err, "service", id)
	}

	service.Name = strings.TrimSpace(payload.Name)
	service.ServicePrice = *payload.ServicePrice
	if err := h.db.WithContext(ctx).Model(&service).Select("name", "service_price").Updates(&service).Error; err != nil {
		return errors.Wrapf(err, "update service %d", id)
	}

	h.invalidate(ctx)
	return ok(c, service)
}

func (h *CatalogHandler) DeleteService(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	result := h.db.WithContext(ctx).Delete(&models.Service{}, id)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "delete service %d", id)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("service", id)
	}

	h.invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

// findServices loads the services to link, failing on the first unknown id
func findServices(tx *gorm.DB, ids []uint) ([]models.Service, error) {
	linked := []models.Service{}
	if len(ids) == 0 {
		return linked, nil
	}

	var found []models.Service
	if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, errors.Wrap(err, "find services")
	}
	byID := make(map[uint]models.Service, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		s, exists := byID[id]
		if !exists {
			return nil, apperr.NotFound("service", id)
		}
		linked = append(linked, s)
	}
	return linked, nil
}
