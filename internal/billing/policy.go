package billing

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"clinic_app_echo/internal/models"
)

// VVIPPolicy selects how VVIP patients are billed
type VVIPPolicy string

const (
	// VVIPFree bills VVIP patients nothing and never touches their trials
	VVIPFree VVIPPolicy = "free"
	// VVIPStandard bills VVIP patients exactly like everyone else
	VVIPStandard VVIPPolicy = "standard"
)

// ParseVVIPPolicy reads a policy name; empty input selects VVIPFree
func ParseVVIPPolicy(value string) (VVIPPolicy, error) {
	switch VVIPPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", VVIPFree:
		return VVIPFree, nil
	case VVIPStandard:
		return VVIPStandard, nil
	default:
		return "", errors.Errorf("unknown vvip policy %q", value)
	}
}

// Decision is the outcome of billing a new record
type Decision struct {
	Status       models.RecordStatus
	ConsumeTrial bool
}

// Decide evaluates the billing precedence for a new record: VVIP, then
// remaining free trials, then paid.
func Decide(patient models.Patient, policy VVIPPolicy) Decision {
	if policy == VVIPFree && patient.IsVVIP() {
		return Decision{Status: models.RecordStatusVVIP}
	}
	if patient.FreeTrials > 0 {
		return Decision{Status: models.RecordStatusTrial, ConsumeTrial: true}
	}
	return Decision{Status: models.RecordStatusPaid}
}

// KeepsStatusOnUpdate reports whether an edited record keeps its status
// instead of being forced to Paid.
func KeepsStatusOnUpdate(patient models.Patient, policy VVIPPolicy) bool {
	return (policy == VVIPFree && patient.IsVVIP()) || patient.FreeTrials > 0
}

// PriceItems pins the charge of every selected product and service for the
// given status. Only Paid records carry catalog prices. The override replaces
// the single product's price of a paid single-product record.
func PriceItems(status models.RecordStatus, products []models.Product, services []models.Service, override *decimal.Decimal) ([]models.RecordProduct, []models.RecordService, decimal.Decimal) {
	charged := status == models.RecordStatusPaid
	total := decimal.Zero

	items := make([]models.RecordProduct, 0, len(products))
	for _, p := range products {
		price := decimal.Zero
		if charged {
			price = p.Price
			if override != nil && len(products) == 1 && len(services) == 0 {
				price = override.Round(2)
			}
		}
		total = total.Add(price)
		items = append(items, models.RecordProduct{ProductID: p.ID, Price: price, Product: p})
	}

	extras := make([]models.RecordService, 0, len(services))
	for _, s := range services {
		price := decimal.Zero
		if charged {
			price = s.ServicePrice
		}
		total = total.Add(price)
		extras = append(extras, models.RecordService{ServiceID: s.ID, Price: price, Service: s})
	}

	return items, extras, total
}
