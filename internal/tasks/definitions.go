package tasks

// DefineTasks registers all available tasks
func DefineTasks(delivery SummaryDelivery) {
	// Register general tasks
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	// Register reporting tasks
	summary := NewDailySummaryTask(delivery)
	RegisterHandler(summary.TaskID(), summary.HandleExecution)
}
