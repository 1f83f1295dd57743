package models

// Tables lists every model managed by auto-migration, dependencies first
var Tables = []interface{}{
	&Patient{},
	&Service{},
	&Product{},
	&Record{},
	&RecordProduct{},
	&RecordService{},
	&Expense{},
	&Visit{},
	&DailySummary{},
	&ScheduledTask{},
	&ScheduledTaskHistory{},
}
