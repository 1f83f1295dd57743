package services

import (
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"clinic_app_echo/internal/models"
)

const csvTimeLayout = "2006-01-02 15:04:05"

type recordRow struct {
	ID        uint   `csv:"id"`
	CreatedAt string `csv:"created_at"`
	Patient   string `csv:"patient"`
	Status    string `csv:"status"`
	Duration  int    `csv:"duration"`
	Products  string `csv:"products"`
	Services  string `csv:"services"`
	Price     string `csv:"price"`
}

type expenseRow struct {
	ID        uint   `csv:"id"`
	CreatedAt string `csv:"created_at"`
	Amount    string `csv:"amount"`
	Remarks   string `csv:"remarks"`
}

// WriteRecordsCSV writes one line per record; records need Patient, Products
// and Services preloaded with their catalog rows.
func WriteRecordsCSV(w io.Writer, records []models.Record) error {
	rows := make([]*recordRow, 0, len(records))
	for _, r := range records {
		products := make([]string, 0, len(r.Products))
		for _, p := range r.Products {
			products = append(products, p.Product.Name)
		}
		services := make([]string, 0, len(r.Services))
		for _, s := range r.Services {
			services = append(services, s.Service.Name)
		}
		patient := ""
		if r.Patient != nil {
			patient = r.Patient.Name
		}
		rows = append(rows, &recordRow{
			ID:        r.ID,
			CreatedAt: r.CreatedAt.Format(csvTimeLayout),
			Patient:   patient,
			Status:    string(r.Status),
			Duration:  r.Duration,
			Products:  strings.Join(products, "; "),
			Services:  strings.Join(services, "; "),
			Price:     r.Price.StringFixed(2),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return errors.Wrap(err, "write records csv")
	}
	return nil
}

// WriteExpensesCSV writes one line per expense
func WriteExpensesCSV(w io.Writer, expenses []models.Expense) error {
	rows := make([]*expenseRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, &expenseRow{
			ID:        e.ID,
			CreatedAt: e.CreatedAt.Format(csvTimeLayout),
			Amount:    e.Amount.StringFixed(2),
			Remarks:   e.Remarks,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return errors.Wrap(err, "write expenses csv")
	}
	return nil
}
