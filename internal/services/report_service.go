package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"clinic_app_echo/internal/metrics"
	"clinic_app_echo/internal/models"
	"clinic_app_echo/internal/reporting"
)

// ReportService runs the dashboard aggregation queries. Nothing is cached;
// every call reads the current state of records and expenses.
type ReportService struct {
	db      *gorm.DB
	metrics *metrics.ClinicMetrics
}

func NewReportService(db *gorm.DB, m *metrics.ClinicMetrics) *ReportService {
	return &ReportService{db: db, metrics: m}
}

// reportScope restricts every query to one calendar day when date is set
type reportScope struct {
	date string
}

func (s reportScope) where(column string) (string, []interface{}) {
	if s.date == "" {
		return "", nil
	}
	return " WHERE DATE(" + column + ") = ?", []interface{}{s.date}
}

// Dashboard builds the all-time dashboard report
func (s *ReportService) Dashboard(ctx context.Context) (*reporting.Report, error) {
	start := time.Now()
	report, err := s.build(ctx, reportScope{})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDashboard(time.Since(start))
	return report, nil
}

// Day builds the report restricted to records and expenses created on date (YYYY-MM-DD)
func (s *ReportService) Day(ctx context.Context, date string) (*reporting.Report, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, errors.Wrapf(err, "invalid report date %q", date)
	}
	return s.build(ctx, reportScope{date: date})
}

func (s *ReportService) build(ctx context.Context, scope reportScope) (*reporting.Report, error) {
	db := s.db.WithContext(ctx)

	expenses, err := s.expensesByDate(db, scope)
	if err != nil {
		return nil, err
	}
	income, err := s.incomeByDate(db, scope)
	if err != nil {
		return nil, err
	}
	usage, err := s.productUsage(db, scope)
	if err != nil {
		return nil, err
	}
	totals, err := s.totals(db, scope)
	if err != nil {
		return nil, err
	}

	return reporting.Build(expenses, income, usage, totals, func(id uint) (*models.Product, error) {
		var product models.Product
		// historical usage may point at a product removed from the catalog since
		if err := db.Unscoped().First(&product, id).Error; err != nil {
			return nil, errors.Wrapf(err, "load most used product %d", id)
		}
		return &product, nil
	})
}

func (s *ReportService) expensesByDate(db *gorm.DB, scope reportScope) ([]reporting.DateAmount, error) {
	where, args := scope.where("created_at")
	var rows []reporting.DateAmount
	err := db.Raw(`SELECT to_char(DATE(created_at), 'YYYY-MM-DD') AS date, COALESCE(SUM(amount), 0) AS amount
		FROM expenses`+where+`
		GROUP BY 1 ORDER BY 1`, args...).Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum expenses by date")
	}
	return rows, nil
}

func (s *ReportService) incomeByDate(db *gorm.DB, scope reportScope) ([]reporting.DateAmount, error) {
	where, args := scope.where("r.created_at")
	var rows []reporting.DateAmount
	err := db.Raw(`SELECT to_char(DATE(r.created_at), 'YYYY-MM-DD') AS date, COALESCE(SUM(i.price), 0) AS amount
		FROM (
			SELECT record_id, price FROM record_products
			UNION ALL
			SELECT record_id, price FROM record_services
		) i
		JOIN records r ON r.id = i.record_id`+where+`
		GROUP BY 1 ORDER BY 1`, args...).Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum income by date")
	}
	return rows, nil
}

func (s *ReportService) productUsage(db *gorm.DB, scope reportScope) ([]reporting.ProductUsage, error) {
	where, args := scope.where("r.created_at")
	var rows []reporting.ProductUsage
	err := db.Raw(`SELECT p.id AS product_id, p.name AS product,
			COALESCE(SUM(rp.price), 0) AS total_amount,
			COUNT(rp.id) AS usage_count,
			COUNT(rp.id) * COALESCE(p.duration, 0) AS total_duration
		FROM record_products rp
		JOIN records r ON r.id = rp.record_id
		JOIN products p ON p.id = rp.product_id`+where+`
		GROUP BY p.id, p.name, p.duration`, args...).Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "aggregate product usage")
	}
	return rows, nil
}

func (s *ReportService) totals(db *gorm.DB, scope reportScope) (reporting.Totals, error) {
	expenseWhere, expenseArgs := scope.where("created_at")
	recordWhere, recordArgs := scope.where("r.created_at")

	args := append([]interface{}{}, expenseArgs...)
	args = append(args, recordArgs...)
	args = append(args, recordArgs...)
	args = append(args, recordArgs...)

	var totals reporting.Totals
	err := db.Raw(`SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM expenses`+expenseWhere+`) AS expense,
			(SELECT COALESCE(SUM(rp.price), 0) FROM record_products rp JOIN records r ON r.id = rp.record_id`+recordWhere+`)
			+ (SELECT COALESCE(SUM(rs.price), 0) FROM record_services rs JOIN records r ON r.id = rs.record_id`+recordWhere+`) AS income,
			(SELECT COUNT(*) FROM records r`+recordWhere+`) AS record_count`, args...).Scan(&totals).Error
	if err != nil {
		return totals, errors.Wrap(err, "sum report totals")
	}
	return totals, nil
}
