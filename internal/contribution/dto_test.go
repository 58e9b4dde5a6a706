package contribution_test

import (
	internalerrors "github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/contribution"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ContributionRequest", func() {
	var req *contribution.ContributionRequest

	BeforeEach(func() {
		req = &contribution.ContributionRequest{
			Amount:       2550,
			Currency:     "USD",
			Email:        "donor@example.org",
			PaymentToken: "tok_visa",
		}
	})

	Describe("Validate", func() {
		It("should accept a well-formed one-time request", func() {
			Expect(req.Validate()).To(Succeed())
		})

		It("should accept a zero amount as a deliberate no-op", func() {
			req.Amount = 0
			req.PaymentToken = ""
			Expect(req.Validate()).To(Succeed())
		})

		It("should reject a negative amount", func() {
			req.Amount = -100
			Expect(req.Validate()).To(HaveOccurred())
		})

		It("should reject a malformed currency", func() {
			req.Currency = "US"
			Expect(req.Validate()).To(HaveOccurred())
		})

		It("should reject a malformed email", func() {
			req.Email = "not-an-email"
			err := req.Validate()
			Expect(err).To(HaveOccurred())

			appErr, ok := internalerrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internalerrors.ErrorTypeValidation))
		})

		It("should reject a missing payment token", func() {
			req.PaymentToken = ""
			Expect(req.Validate()).To(HaveOccurred())
		})

		It("should reject an unknown frequency unit", func() {
			req.FrequencyUnit = "fortnight"
			req.InvoiceID = "inv_1"
			Expect(req.Validate()).To(HaveOccurred())
		})

		It("should require an invoice id for recurring requests", func() {
			req.FrequencyUnit = "month"
			Expect(req.Validate()).To(HaveOccurred())

			req.InvoiceID = "inv_1"
			Expect(req.Validate()).To(Succeed())
		})

		It("should reject an unknown redirect context", func() {
			req.RedirectContext = "somewhere"
			Expect(req.Validate()).To(HaveOccurred())
		})

		It("should accept the known redirect contexts", func() {
			for _, ctx := range []string{contribution.ContextContribute, contribution.ContextEvent, contribution.ContextMembership} {
				req.RedirectContext = ctx
				Expect(req.Validate()).To(Succeed())
			}
		})
	})

	Describe("IsRecurring", func() {
		It("should be driven by the frequency unit alone", func() {
			Expect(req.IsRecurring()).To(BeFalse())
			req.FrequencyUnit = "month"
			Expect(req.IsRecurring()).To(BeTrue())
		})
	})
})
