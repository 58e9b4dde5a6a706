package contribution

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	errors "github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/transport"
)

type ServiceAPI interface {
	Charge(ctx context.Context, req *ContributionRequest) (*ChargeResult, error)
}

type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
	BaseURL string
	Logger  *slog.Logger
}

func NewHandler(service ServiceAPI, baseURL string, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Service:     service,
		BaseURL:     baseURL,
		Logger:      logger,
	}
}

type errorResponse struct {
	Error    *errors.AppError `json:"error"`
	RetryURL string           `json:"retry_url,omitempty"`
}

// Create handles POST /api/v1/contributions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req ContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("Create: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.Logger.Error("Create: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.Charge(r.Context(), &req)
	if err != nil {
		h.writeChargeError(w, &req, err)
		return
	}

	h.Logger.Info("Create: contribution processed",
		"trxn_id", result.TransactionID,
		"amount", result.Amount,
		"recurring", result.Recurring,
	)
	h.WriteJSON(w, http.StatusOK, result)
}

// writeChargeError surfaces the classifier's formatted message together
// with the retry destination for the originating flow. Every fatal path
// ends here; nothing retries automatically.
func (h *Handler) writeChargeError(w http.ResponseWriter, req *ContributionRequest, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		h.Logger.Error("Create: unclassified error", "error", err)
		appErr = errors.NewInternalError("payment processing failed", err)
	}

	h.Logger.Error("Create: contribution failed",
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"email", req.Email,
		"amount", req.Amount,
	)

	query := url.Values{}
	if req.InvoiceID != "" {
		query.Set("invoice_id", req.InvoiceID)
	}
	retryURL := transport.BuildRedirectURL(h.BaseURL, transport.RetryRoute(req.RedirectContext), query)

	status, _ := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, errorResponse{Error: appErr, RetryURL: retryURL})
}
