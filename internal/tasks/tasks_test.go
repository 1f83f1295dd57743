package tasks

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic_app_echo/internal/metrics"
	"clinic_app_echo/internal/models"
	"clinic_app_echo/internal/reporting"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("b_task", LogInfoTask.HandleExecution)
	r.Register("a_task", LogInfoTask.HandleExecution)

	_, ok := r.Get("a_task")
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a_task", "b_task"}, r.Names())
}

func TestDefineTasks(t *testing.T) {
	DefineTasks(SummaryDelivery{})
	_, ok := GetHandler("log_info")
	assert.True(t, ok)
	_, ok = GetHandler("daily_summary")
	assert.True(t, ok)
}

func TestBuildScheduledTask(t *testing.T) {
	due := time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC)
	task, err := BuildScheduledTask("daily_summary", DailySummaryArgs{Date: "2025-01-01"}, due, nil, "", 0)
	require.NoError(t, err)

	assert.Equal(t, "2025-01-01", task.Arguments["date"])
	assert.Equal(t, models.ScheduledTaskTypeOneTime, task.TaskType)
	assert.Equal(t, models.ScheduledTaskStatusActive, task.Status)
	assert.Equal(t, 1, task.MaxAttempt)

	recurring, err := NewDailySummaryTask(SummaryDelivery{}).CreateTask(due)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduledTaskTypeRecurring, recurring.TaskType)
	require.NotNil(t, recurring.RecurringInterval)
	assert.Equal(t, "FREQ=DAILY", *recurring.RecurringInterval)
	assert.Empty(t, recurring.Arguments)
}

func TestNextState(t *testing.T) {
	due := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)
	daily := "FREQ=DAILY"
	once := "FREQ=DAILY;COUNT=1"

	tests := []struct {
		name       string
		task       models.ScheduledTask
		succeeded  bool
		wantStatus models.ScheduledTaskStatus
		wantDue    time.Time
	}{
		{"failure", models.ScheduledTask{Due: due, TaskType: models.ScheduledTaskTypeRecurring, RecurringInterval: &daily}, false, models.ScheduledTaskStatusFailure, due},
		{"one time done", models.ScheduledTask{Due: due, TaskType: models.ScheduledTaskTypeOneTime}, true, models.ScheduledTaskStatusDone, due},
		{"recurring advances", models.ScheduledTask{Due: due, TaskType: models.ScheduledTaskTypeRecurring, RecurringInterval: &daily}, true, models.ScheduledTaskStatusActive, time.Date(2025, 1, 4, 8, 0, 0, 0, time.UTC)},
		{"recurring exhausted", models.ScheduledTask{Due: due, TaskType: models.ScheduledTaskTypeRecurring, RecurringInterval: &once}, true, models.ScheduledTaskStatusDone, due},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, next := nextState(tt.task, tt.succeeded, now)
			assert.Equal(t, tt.wantStatus, status)
			assert.True(t, tt.wantDue.Equal(next), "got %s", next)
		})
	}
}

func TestLogInfoTask(t *testing.T) {
	result, err := LogInfoTask.HandleExecution(context.Background(), nil, models.ScheduledTask{
		Arguments:  map[string]interface{}{"message": "hello"},
		MaxAttempt: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", result["message"])
	assert.Equal(t, 2, result["max_attempts_info"])
}

func TestRunnerExecute(t *testing.T) {
	t.Run("one time success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "scheduled_task_histories"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "scheduled_tasks" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		registry := NewRegistry()
		registry.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)
		runner := NewRunner(db, registry, metrics.NewClinicMetrics(prometheus.NewRegistry()))

		runner.Execute(context.Background(), models.ScheduledTask{ID: 3, TaskName: "log_info", TaskType: models.ScheduledTaskTypeOneTime, MaxAttempt: 3})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries then fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "scheduled_task_histories"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "scheduled_task_histories"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "scheduled_tasks" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		calls := 0
		registry := NewRegistry()
		registry.Register("flaky", func(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
			calls++
			return nil, errors.New("smtp timeout")
		})

		NewRunner(db, registry, nil).Execute(context.Background(), models.ScheduledTask{ID: 4, TaskName: "flaky", MaxAttempt: 2})
		assert.Equal(t, 2, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown handler", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "scheduled_task_histories"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "scheduled_tasks" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		NewRunner(db, NewRegistry(), nil).Execute(context.Background(), models.ScheduledTask{ID: 5, TaskName: "gone"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type fakeDayReporter struct {
	asked  []string
	report *reporting.Report
	err    error
}

func (f *fakeDayReporter) Day(ctx context.Context, date string) (*reporting.Report, error) {
	f.asked = append(f.asked, date)
	return f.report, f.err
}

type fakeEmail struct {
	calls   int
	to      []string
	subject string
	body    string
}

func (f *fakeEmail) Configured() bool { return true }

func (f *fakeEmail) SendEmail(ctx context.Context, to []string, subject, body string) error {
	f.calls++
	f.to, f.subject, f.body = to, subject, body
	return nil
}

// fakeWhatsApp fails every message to failFor while err is set
type fakeWhatsApp struct {
	chats   []string
	failFor string
	err     error
}

func (f *fakeWhatsApp) SendMessage(ctx context.Context, chatID, text string) error {
	if f.err != nil && (f.failFor == "" || f.failFor == chatID) {
		return f.err
	}
	f.chats = append(f.chats, chatID)
	return nil
}

func dayReport() *reporting.Report {
	return &reporting.Report{
		Products: []reporting.ProductUsage{
			{ProductID: 1, Product: "Sauna", TotalAmount: decimal.NewFromInt(200), UsageCount: 2, TotalDuration: 60},
		},
		Profit: decimal.NewFromInt(150),
		Totals: reporting.Totals{Income: decimal.NewFromInt(215), Expense: decimal.NewFromInt(50), RecordCount: 2},
	}
}

func TestDailySummaryTask(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "daily_summaries"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	reporter := &fakeDayReporter{report: dayReport()}
	email := &fakeEmail{}
	wa := &fakeWhatsApp{}

	task := NewDailySummaryTask(SummaryDelivery{
		Email:      email,
		EmailTo:    []string{"owner@clinic.test"},
		WhatsApp:   wa,
		WhatsAppTo: []string{"081246361829"},
	})
	task.reporter = func(*gorm.DB) DayReporter { return reporter }
	task.now = func() time.Time { return time.Date(2025, 1, 3, 6, 0, 0, 0, time.UTC) }

	result, err := task.HandleExecution(context.Background(), db, models.ScheduledTask{Arguments: map[string]interface{}{}})
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-01-02"}, reporter.asked)
	assert.Equal(t, "165.00", result["net"])
	assert.Equal(t, 1, result["emailed"])
	assert.Equal(t, 1, result["whatsapp"])
	assert.Equal(t, "Clinic summary 2025-01-02", email.subject)
	assert.Contains(t, email.body, "Net: 165.00")
	assert.Contains(t, email.body, "- Sauna: 2 x, 200.00")
	assert.Equal(t, []string{"081246361829"}, wa.chats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailySummaryTaskErrors(t *testing.T) {
	t.Run("bad date", func(t *testing.T) {
		task := NewDailySummaryTask(SummaryDelivery{})
		_, err := task.HandleExecution(context.Background(), nil, models.ScheduledTask{Arguments: map[string]interface{}{"date": "yesterday"}})
		assert.Error(t, err)
	})

	t.Run("delivery failure fails the task", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "daily_summaries"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		task := NewDailySummaryTask(SummaryDelivery{
			WhatsApp:   &fakeWhatsApp{err: errors.New("session not started")},
			WhatsAppTo: []string{"6281246361829"},
		})
		task.reporter = func(*gorm.DB) DayReporter { return &fakeDayReporter{report: dayReport()} }

		_, err := task.HandleExecution(context.Background(), db, models.ScheduledTask{Arguments: map[string]interface{}{"date": "2025-01-02"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session not started")
	})
}

func TestDailySummaryRetrySkipsDeliveredRecipients(t *testing.T) {
	db, mock := newMockDB(t)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "daily_summaries"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(i + 1))
	}

	email := &fakeEmail{}
	wa := &fakeWhatsApp{failFor: "6281300000002", err: errors.New("session not started")}
	task := NewDailySummaryTask(SummaryDelivery{
		Email:      email,
		EmailTo:    []string{"owner@clinic.test"},
		WhatsApp:   wa,
		WhatsAppTo: []string{"6281300000001", "6281300000002"},
	})
	task.reporter = func(*gorm.DB) DayReporter { return &fakeDayReporter{report: dayReport()} }
	args := models.ScheduledTask{Arguments: map[string]interface{}{"date": "2025-01-02"}}

	_, err := task.HandleExecution(context.Background(), db, args)
	require.Error(t, err)
	assert.Equal(t, 1, email.calls)
	assert.Equal(t, []string{"6281300000001"}, wa.chats)

	wa.err = nil
	result, err := task.HandleExecution(context.Background(), db, args)
	require.NoError(t, err)
	assert.Equal(t, 1, email.calls)
	assert.Equal(t, []string{"6281300000001", "6281300000002"}, wa.chats)
	assert.Equal(t, 1, result["emailed"])
	assert.Equal(t, 2, result["whatsapp"])

	// a fully delivered date is sent again when run again
	_, err = task.HandleExecution(context.Background(), db, args)
	require.NoError(t, err)
	assert.Equal(t, 2, email.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
