package handlers

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler the server mounts
type Handlers struct {
	Dashboard *DashboardHandler
	Patients  *PatientHandler
	Catalog   *CatalogHandler
	Expenses  *ExpenseHandler
	Visits    *VisitHandler
	Records   *RecordHandler
}

// Register mounts the JSON API on e
func (h Handlers) Register(e *echo.Echo) {
	e.GET("/dashboard/data", h.Dashboard.Data)
	e.POST("/getdashboarddata", h.Dashboard.Data)

	patients := e.Group("/patients")
	patients.GET("", h.Patients.ListPatients)
	patients.POST("", h.Patients.StorePatient)
	patients.GET("/filters", h.Patients.Filters)
	patients.GET("/:id", h.Patients.ShowPatient)
	patients.PUT("/:id", h.Patients.UpdatePatient)
	patients.DELETE("/:id", h.Patients.DeletePatient)
	patients.GET("/:id/visits", h.Visits.ListVisits)
	patients.POST("/:id/visits", h.Visits.StoreVisit)

	products := e.Group("/products")
	products.GET("", h.Catalog.ListProducts)
	products.POST("", h.Catalog.StoreProduct)
	products.GET("/:id", h.Catalog.ShowProduct)
	products.PUT("/:id", h.Catalog.UpdateProduct)
	products.DELETE("/:id", h.Catalog.DeleteProduct)

	svc := e.Group("/services")
	svc.GET("", h.Catalog.ListServices)
	svc.POST("", h.Catalog.StoreService)
	svc.GET("/:id", h.Catalog.ShowService)
	svc.PUT("/:id", h.Catalog.UpdateService)
	svc.DELETE("/:id", h.Catalog.DeleteService)

	expenses := e.Group("/expenses")
	expenses.GET("", h.Expenses.ListExpenses)
	expenses.POST("", h.Expenses.StoreExpense)
	expenses.GET("/export.csv", h.Expenses.ExportExpenses)

	records := e.Group("/records")
	records.GET("", h.Records.ListRecords)
	records.POST("", h.Records.StoreRecord)
	records.GET("/options", h.Records.Options)
	records.GET("/export.csv", h.Records.ExportRecords)
	records.PUT("/:id", h.Records.UpdateRecord)
	records.DELETE("/:id", h.Records.DeleteRecord)
}
