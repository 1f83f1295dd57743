package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clinic_app_echo/internal/apperr"
	"clinic_app_echo/internal/models"
	"clinic_app_echo/internal/services"
)

type ExpenseHandler struct {
	db *gorm.DB
}

func NewExpenseHandler(db *gorm.DB) *ExpenseHandler {
	return &ExpenseHandler{db: db}
}

type expensePayload struct {
	Amount  *decimal.Decimal `json:"amount" validate:"required"`
	Remarks string           `json:"remarks"`
}

// ListExpenses lists expenses, latest first
func (h *ExpenseHandler) ListExpenses(c echo.Context) error {
	page, perPage := parsePagination(c)
	db := h.db.WithContext(c.Request().Context()).Model(&models.Expense{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return errors.Wrap(err, "count expenses")
	}

	var expenses []models.Expense
	if err := db.Order("created_at DESC").Offset(offset(page, perPage)).Limit(perPage).Find(&expenses).Error; err != nil {
		return errors.Wrap(err, "list expenses")
	}
	return paged(c, expenses, total, page, perPage)
}

// StoreExpense logs an expense
func (h *ExpenseHandler) StoreExpense(c echo.Context) error {
	var payload expensePayload
	if err := bindAndValidate(c, &payload, func(v *apperr.ValidationError) {
		nonNegative(v, "amount", payload.Amount)
	}); err != nil {
		return err
	}

	expense := models.Expense{
		Amount:  *payload.Amount,
		Remarks: strings.TrimSpace(payload.Remarks),
	}
	if err := h.db.WithContext(c.Request().Context()).Create(&expense).Error; err != nil {
		return errors.Wrap(err, "create expense")
	}
	return created(c, expense)
}

// ExportExpenses streams every expense as CSV
func (h *ExpenseHandler) ExportExpenses(c echo.Context) error {
	var expenses []models.Expense
	if err := h.db.WithContext(c.Request().Context()).Order("created_at").Find(&expenses).Error; err != nil {
		return errors.Wrap(err, "export expenses")
	}

	return writeCSV(c, "expenses", func(w *echo.Response) error {
		return services.WriteExpensesCSV(w, expenses)
	})
}

func writeCSV(c echo.Context, name string, write func(w *echo.Response) error) error {
	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	return write(c.Response())
}
