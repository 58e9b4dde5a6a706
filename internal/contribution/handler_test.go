package contribution_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	internalerrors "github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/contribution"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockChargeService implements contribution.ServiceAPI.
type MockChargeService struct {
	Result  *contribution.ChargeResult
	Err     error
	LastReq *contribution.ContributionRequest
}

func (m *MockChargeService) Charge(ctx context.Context, req *contribution.ContributionRequest) (*contribution.ChargeResult, error) {
	m.LastReq = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

var _ contribution.ServiceAPI = (*MockChargeService)(nil)

var _ = Describe("Contribution Handler", func() {
	var (
		mockService *MockChargeService
		handler     *contribution.Handler
		recorder    *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		mockService = &MockChargeService{
			Result: &contribution.ChargeResult{
				Amount:        2550,
				TransactionID: "ch_1",
				Fee:           1.04,
				Net:           24.46,
			},
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = contribution.NewHandler(mockService, "https://donate.example.org", logger)
		recorder = httptest.NewRecorder()
	})

	post := func(body interface{}) {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions", bytes.NewReader(payload))
		handler.Create(recorder, req)
	}

	Context("with a valid request", func() {
		It("should return the charge result", func() {
			post(map[string]interface{}{
				"amount":        2550,
				"currency":      "USD",
				"email":         "donor@example.org",
				"payment_token": "tok_visa",
			})

			Expect(recorder.Code).To(Equal(http.StatusOK))

			var result contribution.ChargeResult
			Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
			Expect(result.TransactionID).To(Equal("ch_1"))
			Expect(result.Fee).To(Equal(1.04))
			Expect(result.Net).To(Equal(24.46))
		})
	})

	Context("with a malformed body", func() {
		It("should return a validation error", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions", bytes.NewReader([]byte("{not json")))
			handler.Create(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("with an invalid payload", func() {
		It("should reject before calling the service", func() {
			post(map[string]interface{}{
				"amount":   2550,
				"currency": "USD",
				"email":    "donor@example.org",
			})

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(mockService.LastReq).To(BeNil())
		})
	})

	Context("when the charge is declined", func() {
		BeforeEach(func() {
			mockService.Err = &internalerrors.AppError{
				Type:       internalerrors.ErrorTypeDeclined,
				Code:       internalerrors.ErrCodeCardDeclined,
				Message:    "Payment failed (card_error, card_declined): Your card was declined.",
				StatusCode: http.StatusPaymentRequired,
			}
		})

		It("should surface the decline with a retry URL for the flow", func() {
			post(map[string]interface{}{
				"amount":           2550,
				"currency":         "USD",
				"email":            "donor@example.org",
				"payment_token":    "tok_visa",
				"invoice_id":       "inv_1",
				"redirect_context": "event",
			})

			Expect(recorder.Code).To(Equal(http.StatusPaymentRequired))

			var resp struct {
				Error    *internalerrors.AppError `json:"error"`
				RetryURL string                   `json:"retry_url"`
			}
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Error.Code).To(Equal(internalerrors.ErrCodeCardDeclined))
			Expect(resp.RetryURL).To(Equal("https://donate.example.org/events/register?invoice_id=inv_1"))
		})

		It("should default the retry URL to the donate flow", func() {
			post(map[string]interface{}{
				"amount":        2550,
				"currency":      "USD",
				"email":         "donor@example.org",
				"payment_token": "tok_visa",
			})

			var resp struct {
				RetryURL string `json:"retry_url"`
			}
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.RetryURL).To(Equal("https://donate.example.org/donate"))
		})
	})

	Context("when the service fails unexpectedly", func() {
		It("should wrap the failure as internal", func() {
			mockService.Err = context.DeadlineExceeded

			post(map[string]interface{}{
				"amount":        2550,
				"currency":      "USD",
				"email":         "donor@example.org",
				"payment_token": "tok_visa",
			})

			Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
