package mirror

import (
	"github.com/drastik/donation-gateway/internal/core/datamodel/billing"
)

// Store is the single source of deduplication truth for remote gateway
// objects. Lookups that find nothing return (nil, nil); an error always
// means the store itself failed.
//
// SaveCustomerMapping and SavePlanMapping must behave as atomic
// check-and-inserts: on a uniqueness conflict the existing row wins and is
// read back, so two concurrent first-time requests for the same payer never
// produce two mappings.
type Store interface {
	FindCustomerByEmail(email string) (*billing.CustomerMapping, error)
	SaveCustomerMapping(mapping *billing.CustomerMapping) error
	DeleteCustomerMapping(email string) error

	PlanExists(planKey string) (bool, error)
	SavePlanMapping(planKey string) error

	FindActiveWatch(gatewayCustomerID string) (*billing.SubscriptionWatch, error)
	SaveWatch(watch *billing.SubscriptionWatch) error

	// CancelWatch marks the recurring-contribution record behind invoiceID
	// as cancelled and deletes the watch row, in one transaction.
	CancelWatch(invoiceID string) error

	CreateRecurringContribution(contribution *billing.RecurringContribution) error

	// FindRecurringContribution looks a recurring record up by its local
	// invoice id. The request path never reads it back; it exists for the
	// periodic reconciliation job that walks the watch list and compares
	// each record against the gateway's view.
	FindRecurringContribution(invoiceID string) (*billing.RecurringContribution, error)
}
