package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"clinic_app_echo/internal/config"
	"clinic_app_echo/internal/logger"
	"clinic_app_echo/internal/models"
	"clinic_app_echo/internal/services"
	"clinic_app_echo/internal/tasks"
)

func main() {
	taskName := flag.String("task_name", "", "Name of the task (mandatory)")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04 or RFC3339)")
	taskType := flag.String("tasktype", "", "Task type: onetime or recurring (default: onetime)")
	recurring := flag.String("recurring", "", "Recurring interval rule, e.g. FREQ=DAILY (optional)")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts (optional, default: 3)")

	flag.Parse()

	if *taskName == "" || *dueStr == "" {
		fmt.Println("Usage: schedule_task -task_name <name> -due <YYYY-MM-DD HH:MM> [-arguments <json_args>] [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := logger.Init(logger.Options{Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, false)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		log.Fatal("invalid JSON arguments", zap.Error(err))
	}

	// RFC3339 first, otherwise the simple layout in server local time
	due, err := time.Parse(time.RFC3339, *dueStr)
	if err != nil {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			log.Fatal("invalid due date, use '2006-01-02 15:04' or RFC3339", zap.Error(err))
		}
	}

	var task *models.ScheduledTask
	summary := tasks.NewDailySummaryTask(tasks.SummaryDelivery{})
	if *taskName == summary.TaskID() && *recurring == "" && *taskType == "" {
		task, err = summary.CreateTask(due)
	} else {
		var recurringPtr *string
		if *recurring != "" {
			recurringPtr = recurring
		}
		task, err = tasks.BuildScheduledTask(*taskName, args, due, recurringPtr, models.ScheduledTaskType(*taskType), *maxAttempt)
	}
	if err != nil {
		log.Fatal("failed to build task", zap.Error(err))
	}

	if err := db.Create(task).Error; err != nil {
		log.Fatal("failed to create task", zap.Error(err))
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
