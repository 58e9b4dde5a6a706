package gateway

import (
	"errors"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v79"

	"github.com/drastik/donation-gateway/internal"
)

// TranslateError maps an SDK failure onto the tagged error taxonomy.
// A response the gateway never sent is a transport failure; everything else
// is classified from the structured error body.
func TranslateError(op string, err error) *internal.GatewayError {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &internal.GatewayError{
			Kind:    internal.GatewayTransport,
			Op:      op,
			Message: err.Error(),
			Cause:   err,
		}
	}

	gwErr := &internal.GatewayError{
		Op:      op,
		Type:    string(stripeErr.Type),
		Code:    string(stripeErr.Code),
		Message: stripeErr.Msg,
		Cause:   err,
	}

	switch {
	case stripeErr.Type == stripe.ErrorTypeCard:
		gwErr.Kind = internal.GatewayDeclined
		if gwErr.Code == "" {
			gwErr.Code = string(stripeErr.DeclineCode)
		}
	case stripeErr.HTTPStatusCode == http.StatusConflict,
		strings.Contains(strings.ToLower(stripeErr.Msg), "already exists"):
		gwErr.Kind = internal.GatewayConflict
	default:
		gwErr.Kind = internal.GatewayFault
	}
	return gwErr
}
