package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic_app_echo/internal/models"
	"clinic_app_echo/internal/reporting"
	"clinic_app_echo/internal/services"
)

const dateLayout = "2006-01-02"

// DayReporter builds the report of a single day
type DayReporter interface {
	Day(ctx context.Context, date string) (*reporting.Report, error)
}

// EmailSender delivers plain text mail
type EmailSender interface {
	Configured() bool
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// WhatsAppSender delivers a WhatsApp text message
type WhatsAppSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// SummaryDelivery says where daily summaries go. Nil senders or empty
// recipient lists skip that channel.
type SummaryDelivery struct {
	Email      EmailSender
	EmailTo    []string
	WhatsApp   WhatsAppSender
	WhatsAppTo []string
}

// DailySummaryArgs defines the arguments for a daily summary task
type DailySummaryArgs struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD, defaults to yesterday
}

// DailySummaryTaskDef snapshots one day of dashboard figures and sends them to the clinic owner.
// Recipients reached by a failed attempt are remembered so a retry of the
// same date only sends to the ones still missing.
type DailySummaryTaskDef struct {
	delivery SummaryDelivery
	reporter func(db *gorm.DB) DayReporter
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]struct{}
}

// NewDailySummaryTask creates the task definition
func NewDailySummaryTask(delivery SummaryDelivery) *DailySummaryTaskDef {
	return &DailySummaryTaskDef{
		delivery: delivery,
		reporter: func(db *gorm.DB) DayReporter { return services.NewReportService(db, nil) },
		now:      time.Now,
		sent:     make(map[string]struct{}),
	}
}

// TaskID returns the unique identifier for this task
func (t *DailySummaryTaskDef) TaskID() string {
	return "daily_summary"
}

// CreateTask builds a recurring task that runs every morning at the given hour
func (t *DailySummaryTaskDef) CreateTask(firstRun time.Time) (*models.ScheduledTask, error) {
	rule := "FREQ=DAILY"
	return BuildScheduledTask(t.TaskID(), DailySummaryArgs{}, firstRun, &rule, models.ScheduledTaskTypeRecurring, 3)
}

// HandleExecution builds the day's figures, stores them and delivers the summary
func (t *DailySummaryTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	date, _ := task.Arguments["date"].(string)
	date = strings.TrimSpace(date)
	if date == "" {
		date = t.now().AddDate(0, 0, -1).Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, errors.Errorf("invalid date argument %q", date)
	}

	report, err := t.reporter(db).Day(ctx, date)
	if err != nil {
		return nil, err
	}

	summary, err := snapshot(date, report)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"income", "expense", "net", "record_count", "breakdown", "updated_at"}),
	}).Create(summary).Error
	if err != nil {
		return nil, errors.Wrapf(err, "store daily summary %s", date)
	}

	text := summaryText(summary, report)
	emailed, messaged, err := t.deliver(ctx, date, text)
	if err != nil {
		return nil, err
	}

	zap.L().Info("daily summary sent",
		zap.String("date", date),
		zap.String("net", summary.Net.StringFixed(2)),
		zap.Int("emailed", emailed),
		zap.Int("whatsapp", messaged),
	)

	return map[string]interface{}{
		"status":       "success",
		"date":         date,
		"income":       summary.Income.StringFixed(2),
		"expense":      summary.Expense.StringFixed(2),
		"net":          summary.Net.StringFixed(2),
		"record_count": summary.RecordCount,
		"emailed":      emailed,
		"whatsapp":     messaged,
	}, nil
}

func snapshot(date string, report *reporting.Report) (*models.DailySummary, error) {
	breakdown, err := json.Marshal(report.Products)
	if err != nil {
		return nil, errors.Wrap(err, "encode product breakdown")
	}
	return &models.DailySummary{
		Date:        date,
		Income:      report.Totals.Income,
		Expense:     report.Totals.Expense,
		Net:         report.Totals.Income.Sub(report.Totals.Expense),
		RecordCount: report.Totals.RecordCount,
		Breakdown:   datatypes.JSON(breakdown),
	}, nil
}

func summaryText(summary *models.DailySummary, report *reporting.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clinic summary for %s\n", summary.Date)
	fmt.Fprintf(&b, "Records: %d\n", summary.RecordCount)
	fmt.Fprintf(&b, "Income: %s\n", summary.Income.StringFixed(2))
	fmt.Fprintf(&b, "Expense: %s\n", summary.Expense.StringFixed(2))
	fmt.Fprintf(&b, "Net: %s\n", summary.Net.StringFixed(2))
	if len(report.Products) > 0 {
		b.WriteString("\nProducts:\n")
		for _, p := range report.Products {
			fmt.Fprintf(&b, "- %s: %d x, %s\n", p.Product, p.UsageCount, p.TotalAmount.StringFixed(2))
		}
	}
	return b.String()
}

func (t *DailySummaryTaskDef) deliver(ctx context.Context, date, text string) (int, int, error) {
	emailed, messaged := 0, 0

	if t.delivery.Email != nil && t.delivery.Email.Configured() && len(t.delivery.EmailTo) > 0 {
		key := "email|" + date
		if !t.wasSent(key) {
			if err := t.delivery.Email.SendEmail(ctx, t.delivery.EmailTo, "Clinic summary "+date, text); err != nil {
				return emailed, messaged, err
			}
			t.markSent(key)
		}
		emailed = len(t.delivery.EmailTo)
	}

	if t.delivery.WhatsApp != nil {
		for _, chatID := range t.delivery.WhatsAppTo {
			key := "whatsapp|" + date + "|" + chatID
			if !t.wasSent(key) {
				if err := t.delivery.WhatsApp.SendMessage(ctx, chatID, text); err != nil {
					return emailed, messaged, errors.Wrapf(err, "whatsapp %s", chatID)
				}
				t.markSent(key)
			}
			messaged++
		}
	}

	t.forget(date)
	return emailed, messaged, nil
}

func (t *DailySummaryTaskDef) wasSent(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sent[key]
	return ok
}

func (t *DailySummaryTaskDef) markSent(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[key] = struct{}{}
}

// forget drops the marks of a fully delivered date; a later run for it sends again
func (t *DailySummaryTaskDef) forget(date string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.sent {
		if strings.Contains(key, "|"+date) {
			delete(t.sent, key)
		}
	}
}
