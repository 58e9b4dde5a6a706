package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/drastik/donation-gateway/internal"
)

// IgnorePattern pre-declares a gateway failure the caller treats as
// success. Kind and Type must match; Message matches as a substring of the
// gateway-reported message. The canonical use is "plan already exists" on
// plan creation.
type IgnorePattern struct {
	Kind    internal.GatewayErrorKind
	Type    string
	Message string
}

func (p IgnorePattern) matches(gwErr *internal.GatewayError) bool {
	if p.Kind != gwErr.Kind {
		return false
	}
	if p.Type != "" && p.Type != gwErr.Type {
		return false
	}
	return strings.Contains(strings.ToLower(gwErr.Message), strings.ToLower(p.Message))
}

// Classify decides what a failed gateway call means for the end user.
// It returns (nil, true) when the error matches the ignore-list: the caller
// proceeds as if the call succeeded. Otherwise the returned AppError is
// final; nothing is retried automatically. The ignore-list is consulted in
// order, first match wins.
func Classify(err error, ignoreList []IgnorePattern, logger *slog.Logger) (*internal.AppError, bool) {
	gwErr, ok := internal.IsGatewayError(err)
	if !ok {
		if appErr, isApp := internal.IsAppError(err); isApp {
			return appErr, false
		}
		return internal.NewInternalError("payment processing failed", err), false
	}

	if gwErr.Kind == internal.GatewayConflict || gwErr.Kind == internal.GatewayFault {
		for _, pattern := range ignoreList {
			if pattern.matches(gwErr) {
				logger.Info("ignoring gateway error",
					"op", gwErr.Op,
					"kind", gwErr.Kind,
					"error_type", gwErr.Type,
					"message", gwErr.Message,
				)
				return nil, true
			}
		}
	}

	switch gwErr.Kind {
	case internal.GatewayDeclined:
		return &internal.AppError{
			Type:       internal.ErrorTypeDeclined,
			Code:       internal.ErrCodeCardDeclined,
			Message:    declineMessage(gwErr),
			StatusCode: http.StatusPaymentRequired,
			Cause:      gwErr,
		}, false

	case internal.GatewayTransport:
		return &internal.AppError{
			Type:       internal.ErrorTypeTransport,
			Code:       internal.ErrCodeGatewayUnreachable,
			Message:    "No response received from the payment gateway. Check the gateway dashboard before retrying; the charge may have gone through.",
			StatusCode: http.StatusServiceUnavailable,
			Cause:      gwErr,
		}, false

	case internal.GatewayConflict:
		logger.Error("unexpected gateway conflict",
			"op", gwErr.Op,
			"error_type", gwErr.Type,
			"error_code", gwErr.Code,
			"message", gwErr.Message,
		)
		return &internal.AppError{
			Type:       internal.ErrorTypeConflict,
			Code:       internal.ErrCodeGatewayConflict,
			Message:    declineMessage(gwErr),
			StatusCode: http.StatusConflict,
			Cause:      gwErr,
		}, false

	default:
		logger.Error("gateway fault",
			"op", gwErr.Op,
			"error_type", gwErr.Type,
			"error_code", gwErr.Code,
			"message", gwErr.Message,
		)
		return &internal.AppError{
			Type:       internal.ErrorTypeGateway,
			Code:       internal.ErrCodeGatewayFault,
			Message:    declineMessage(gwErr),
			StatusCode: http.StatusBadGateway,
			Cause:      gwErr,
		}, false
	}
}

func declineMessage(gwErr *internal.GatewayError) string {
	msg := gwErr.Message
	if msg == "" {
		msg = "the payment could not be processed"
	}
	if gwErr.Code != "" {
		return fmt.Sprintf("Payment failed (%s, %s): %s", gwErr.Type, gwErr.Code, msg)
	}
	return fmt.Sprintf("Payment failed (%s): %s", gwErr.Type, msg)
}
