package contribution

import (
	"strings"

	errors "github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/core/common/validation"
)

// Redirect-context flags supplied by the contribution form. They select the
// retry destination on failure, nothing else.
const (
	ContextContribute = "contribute"
	ContextEvent      = "event"
	ContextMembership = "membership"
)

var frequencyUnits = []string{"day", "week", "month", "year"}

// ContributionRequest is the payload from the payment-form collaborator.
// Amount is in minor currency units; PaymentToken is the opaque single-use
// token the client-side tokenization step produced.
type ContributionRequest struct {
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Email        string `json:"email"`
	PaymentToken string `json:"payment_token"`
	Description  string `json:"description"`
	InvoiceID    string `json:"invoice_id"`

	// SecondCharge marks the second charge of the same form submission:
	// the token was already attached and must not be replayed.
	SecondCharge bool `json:"second_charge,omitempty"`

	FrequencyUnit     string `json:"frequency_unit,omitempty"`
	FrequencyInterval int64  `json:"frequency_interval,omitempty"`
	Installments      int64  `json:"installments,omitempty"`

	RedirectContext string `json:"redirect_context,omitempty"`
}

func (r *ContributionRequest) IsRecurring() bool {
	return r.FrequencyUnit != ""
}

func (r *ContributionRequest) Validate() error {
	// Zero amount is a deliberate no-op upstream, not a validation error.
	if r.Amount == 0 {
		return nil
	}

	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).MinInt(1, errors.ErrCodeInvalidAmount)
	validator.Field("currency", r.Currency).Required().
		MinLength(3).MaxLength(3)
	validator.Field("email", r.Email).Required().
		Custom(func(v interface{}) *errors.AppError {
			if s, ok := v.(string); ok && s != "" && !strings.Contains(s, "@") {
				return errors.NewValidationFieldError("email", "email is not valid", errors.ErrCodeInvalidEmail)
			}
			return nil
		})
	validator.Field("payment_token", r.PaymentToken).Required()
	validator.Field("frequency_unit", r.FrequencyUnit).
		OneOf(frequencyUnits, errors.ErrCodeInvalidFrequency)
	validator.Field("redirect_context", r.RedirectContext).
		OneOf([]string{ContextContribute, ContextEvent, ContextMembership}, errors.ErrCodeValidationFailed)

	if r.IsRecurring() {
		validator.Field("invoice_id", r.InvoiceID).Required()
	}

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ChargeResult is what one completed contribution reports back: the remote
// transaction id plus the fee/net split in major currency units.
type ChargeResult struct {
	Amount        int64   `json:"amount"`
	TransactionID string  `json:"trxn_id,omitempty"`
	Fee           float64 `json:"fee_amount"`
	Net           float64 `json:"net_amount"`
	Recurring     bool    `json:"recurring"`
}
