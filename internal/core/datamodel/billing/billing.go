package billing

import (
	"time"
)

// CustomerMapping pins a payer email to the gateway customer created for it.
// Email is unique so two concurrent first-time charges for the same payer
// collapse onto one remote customer (insert conflict reads back the winner).
type CustomerMapping struct {
	ID                int64     `gorm:"primaryKey"`
	Email             string    `gorm:"column:email;not null;uniqueIndex"`
	GatewayCustomerID string    `gorm:"column:gateway_customer_id;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt         time.Time `gorm:"column:updated_at;default:now()"`
}

func (CustomerMapping) TableName() string {
	return "customer_mappings"
}

// PlanMapping records that a billing plan exists remotely. Rows are
// append-only; presence of the key is the whole payload.
type PlanMapping struct {
	ID        int64     `gorm:"primaryKey"`
	PlanKey   string    `gorm:"column:plan_key;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (PlanMapping) TableName() string {
	return "plan_mappings"
}

// SubscriptionWatch links a remote subscription to the local recurring
// contribution it funds. The periodic reconciliation job reads EndTime to
// decide when installments are exhausted; nil means indefinite.
type SubscriptionWatch struct {
	ID                int64     `gorm:"primaryKey"`
	GatewayCustomerID string    `gorm:"column:gateway_customer_id;not null;index"`
	LocalInvoiceID    string    `gorm:"column:local_invoice_id;not null;uniqueIndex"`
	EndTime           *int64    `gorm:"column:end_time"`
	IsLive            bool      `gorm:"column:is_live;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;default:now()"`
}

func (SubscriptionWatch) TableName() string {
	return "subscription_watches"
}

// Recurring contribution status codes.
const (
	RecurringStatusInProgress = "in_progress"
	RecurringStatusCancelled  = "cancelled"
)

// RecurringContribution is the local lineage record a watch row points at.
// Superseding a subscription stamps CancelDate and flips Status.
type RecurringContribution struct {
	ID                int64      `gorm:"primaryKey"`
	InvoiceID         string     `gorm:"column:invoice_id;not null;uniqueIndex"`
	Amount            int64      `gorm:"column:amount;not null"`
	Currency          string     `gorm:"column:currency;not null"`
	FrequencyUnit     string     `gorm:"column:frequency_unit;not null"`
	FrequencyInterval int64      `gorm:"column:frequency_interval;not null;default:1"`
	Installments      int64      `gorm:"column:installments;not null;default:0"`
	Status            string     `gorm:"column:status;not null;default:in_progress"`
	CancelDate        *time.Time `gorm:"column:cancel_date"`
	CreatedAt         time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;default:now()"`
}

func (RecurringContribution) TableName() string {
	return "recurring_contributions"
}
