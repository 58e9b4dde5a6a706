package recurring_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	internalerrors "github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/core/datamodel/billing"
	"github.com/drastik/donation-gateway/internal/gateway"
	"github.com/drastik/donation-gateway/internal/mirror"
	"github.com/drastik/donation-gateway/internal/recurring"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockGateway implements gateway.Client and records every call.
type MockGateway struct {
	Calls []string

	ActiveSubscription *gateway.Subscription
	CreatedSub         *gateway.Subscription

	CreatePlanErr         error
	CreateSubscriptionErr error
	CancelErr             error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		CreatedSub: &gateway.Subscription{ID: "sub_new", Status: "active"},
	}
}

func (m *MockGateway) record(op string) {
	m.Calls = append(m.Calls, op)
}

func (m *MockGateway) CallCount(op string) int {
	count := 0
	for _, c := range m.Calls {
		if c == op {
			count++
		}
	}
	return count
}

func (m *MockGateway) CreateCustomer(ctx context.Context, params gateway.CustomerParams) (*gateway.Customer, error) {
	m.record("create_customer")
	return &gateway.Customer{ID: "cus_mock", Email: params.Email}, nil
}

func (m *MockGateway) RetrieveCustomer(ctx context.Context, customerID string) (*gateway.Customer, error) {
	m.record("retrieve_customer")
	return &gateway.Customer{ID: customerID}, nil
}

func (m *MockGateway) UpdateCustomer(ctx context.Context, customerID string, params gateway.CustomerParams) (*gateway.Customer, error) {
	m.record("update_customer")
	return &gateway.Customer{ID: customerID}, nil
}

func (m *MockGateway) CreateCharge(ctx context.Context, params gateway.ChargeParams) (*gateway.Charge, error) {
	m.record("create_charge")
	return &gateway.Charge{ID: "ch_mock", Amount: params.Amount, Paid: true}, nil
}

func (m *MockGateway) CreatePlan(ctx context.Context, params gateway.PlanParams) (*gateway.Plan, error) {
	m.record("create_plan")
	if m.CreatePlanErr != nil {
		return nil, m.CreatePlanErr
	}
	return &gateway.Plan{ID: params.Key, Amount: params.Amount}, nil
}

func (m *MockGateway) CreateSubscription(ctx context.Context, params gateway.SubscriptionParams) (*gateway.Subscription, error) {
	m.record("create_subscription")
	if m.CreateSubscriptionErr != nil {
		return nil, m.CreateSubscriptionErr
	}
	sub := *m.CreatedSub
	sub.CustomerID = params.CustomerID
	sub.PlanKey = params.PlanKey
	return &sub, nil
}

func (m *MockGateway) UpdateSubscription(ctx context.Context, subscriptionID string, params gateway.SubscriptionParams) (*gateway.Subscription, error) {
	m.record("update_subscription")
	return &gateway.Subscription{ID: subscriptionID, PlanKey: params.PlanKey}, nil
}

func (m *MockGateway) FindActiveSubscription(ctx context.Context, customerID string) (*gateway.Subscription, error) {
	m.record("find_active_subscription")
	return m.ActiveSubscription, nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	m.record("cancel_subscription")
	return m.CancelErr
}

func (m *MockGateway) RetrieveBalanceTransaction(ctx context.Context, balanceTransactionID string) (*gateway.BalanceTransaction, error) {
	m.record("retrieve_balance_transaction")
	return &gateway.BalanceTransaction{ID: balanceTransactionID}, nil
}

// MockStore implements mirror.Store with in-memory maps.
type MockStore struct {
	Customers     map[string]*billing.CustomerMapping
	Plans         map[string]bool
	Watches       map[string]*billing.SubscriptionWatch
	Contributions map[string]*billing.RecurringContribution

	failError error
}

func NewMockStore() *MockStore {
	return &MockStore{
		Customers:     make(map[string]*billing.CustomerMapping),
		Plans:         make(map[string]bool),
		Watches:       make(map[string]*billing.SubscriptionWatch),
		Contributions: make(map[string]*billing.RecurringContribution),
	}
}

func (m *MockStore) SetShouldFail(err error) {
	m.failError = err
}

func (m *MockStore) FindCustomerByEmail(email string) (*billing.CustomerMapping, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	return m.Customers[email], nil
}

func (m *MockStore) SaveCustomerMapping(mapping *billing.CustomerMapping) error {
	if m.failError != nil {
		return m.failError
	}
	if existing, ok := m.Customers[mapping.Email]; ok {
		*mapping = *existing
		return nil
	}
	m.Customers[mapping.Email] = mapping
	return nil
}

func (m *MockStore) DeleteCustomerMapping(email string) error {
	if m.failError != nil {
		return m.failError
	}
	delete(m.Customers, email)
	return nil
}

func (m *MockStore) PlanExists(planKey string) (bool, error) {
	if m.failError != nil {
		return false, m.failError
	}
	return m.Plans[planKey], nil
}

func (m *MockStore) SavePlanMapping(planKey string) error {
	if m.failError != nil {
		return m.failError
	}
	m.Plans[planKey] = true
	return nil
}

func (m *MockStore) FindActiveWatch(gatewayCustomerID string) (*billing.SubscriptionWatch, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	for _, watch := range m.Watches {
		if watch.GatewayCustomerID == gatewayCustomerID {
			return watch, nil
		}
	}
	return nil, nil
}

func (m *MockStore) SaveWatch(watch *billing.SubscriptionWatch) error {
	if m.failError != nil {
		return m.failError
	}
	m.Watches[watch.LocalInvoiceID] = watch
	return nil
}

func (m *MockStore) CancelWatch(invoiceID string) error {
	if m.failError != nil {
		return m.failError
	}
	contribution, ok := m.Contributions[invoiceID]
	if !ok {
		return internalerrors.NewNotFoundError(
			"recurring contribution not found", internalerrors.ErrCodeInvoiceNotFound)
	}
	contribution.Status = billing.RecurringStatusCancelled
	delete(m.Watches, invoiceID)
	return nil
}

func (m *MockStore) CreateRecurringContribution(contribution *billing.RecurringContribution) error {
	if m.failError != nil {
		return m.failError
	}
	m.Contributions[contribution.InvoiceID] = contribution
	return nil
}

func (m *MockStore) FindRecurringContribution(invoiceID string) (*billing.RecurringContribution, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	return m.Contributions[invoiceID], nil
}

var _ mirror.Store = (*MockStore)(nil)
var _ gateway.Client = (*MockGateway)(nil)

var _ = Describe("Recurring Service", func() {
	var (
		mockGateway *MockGateway
		mockStore   *MockStore
		service     *recurring.Service
		cfg         internalerrors.StripeConfig
		params      recurring.SubscribeParams
	)

	BeforeEach(func() {
		mockGateway = NewMockGateway()
		mockStore = NewMockStore()
		cfg = internalerrors.StripeConfig{Name: "stripe", SecretKey: "sk_test_x", Livemode: false}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = recurring.NewService(mockGateway, mockStore, cfg, nil, logger)

		params = recurring.SubscribeParams{
			GatewayCustomerID: "cus_1",
			Amount:            2500,
			Currency:          "usd",
			FrequencyUnit:     "month",
			FrequencyInterval: 1,
			Installments:      0,
			InvoiceID:         "inv_1",
		}
	})

	Describe("Subscribe", func() {
		Context("when nothing exists yet", func() {
			It("should create the plan, the subscription and the watch", func() {
				result, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.TransactionID).To(Equal("sub_new"))

				Expect(mockGateway.CallCount("create_plan")).To(Equal(1))
				Expect(mockGateway.CallCount("create_subscription")).To(Equal(1))
				Expect(mockGateway.CallCount("cancel_subscription")).To(Equal(0))

				Expect(mockStore.Plans["every-1-month-2500-test"]).To(BeTrue())
				Expect(mockStore.Watches).To(HaveKey("inv_1"))
				Expect(mockStore.Contributions["inv_1"].Status).To(Equal(billing.RecurringStatusInProgress))
			})

			It("should report net as amount minus fee in major units", func() {
				result, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Fee).To(Equal(0.0))
				Expect(result.Net).To(Equal(25.0))
			})

			It("should leave end time open for indefinite subscriptions", func() {
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(mockStore.Watches["inv_1"].EndTime).To(BeNil())
			})
		})

		Context("when installments are limited", func() {
			It("should record the end time on the watch", func() {
				params.Installments = 12
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(mockStore.Watches["inv_1"].EndTime).NotTo(BeNil())
			})
		})

		Context("when the plan is already mirrored", func() {
			BeforeEach(func() {
				mockStore.Plans["every-1-month-2500-test"] = true
			})

			It("should not call the gateway for plan creation", func() {
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(mockGateway.CallCount("create_plan")).To(Equal(0))
			})
		})

		Context("when plan creation conflicts remotely", func() {
			BeforeEach(func() {
				mockGateway.CreatePlanErr = &internalerrors.GatewayError{
					Kind:    internalerrors.GatewayConflict,
					Op:      "create_plan",
					Type:    "invalid_request_error",
					Message: "Plan already exists.",
				}
			})

			It("should treat the conflict as success and mirror the key", func() {
				result, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(result).NotTo(BeNil())
				Expect(mockStore.Plans["every-1-month-2500-test"]).To(BeTrue())
			})
		})

		Context("when plan creation fails for another reason", func() {
			BeforeEach(func() {
				mockGateway.CreatePlanErr = &internalerrors.GatewayError{
					Kind: internalerrors.GatewayFault,
					Op:   "create_plan",
					Type: "api_error",
				}
			})

			It("should fail without touching the subscription", func() {
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).To(HaveOccurred())
				Expect(mockGateway.CallCount("create_subscription")).To(Equal(0))
			})
		})

		Context("when the customer already has an active subscription", func() {
			BeforeEach(func() {
				mockGateway.ActiveSubscription = &gateway.Subscription{ID: "sub_old", Status: "active", CustomerID: "cus_1"}
				mockStore.Contributions["inv_old"] = &billing.RecurringContribution{
					InvoiceID: "inv_old",
					Status:    billing.RecurringStatusInProgress,
				}
				mockStore.Watches["inv_old"] = &billing.SubscriptionWatch{
					GatewayCustomerID: "cus_1",
					LocalInvoiceID:    "inv_old",
				}
			})

			It("should cancel the old subscription before creating the new one", func() {
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(mockGateway.CallCount("cancel_subscription")).To(Equal(1))
				Expect(mockGateway.CallCount("create_subscription")).To(Equal(1))
			})

			It("should leave exactly one watch for the customer", func() {
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(mockStore.Watches).To(HaveLen(1))
				Expect(mockStore.Watches).To(HaveKey("inv_1"))
			})

			It("should mark the superseded contribution cancelled", func() {
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(mockStore.Contributions["inv_old"].Status).To(Equal(billing.RecurringStatusCancelled))
			})
		})

		Context("when the subscription attach is declined", func() {
			BeforeEach(func() {
				mockGateway.CreateSubscriptionErr = &internalerrors.GatewayError{
					Kind:    internalerrors.GatewayDeclined,
					Op:      "create_subscription",
					Type:    "card_error",
					Code:    "card_declined",
					Message: "Your card was declined.",
				}
			})

			It("should surface a payment-required error and record nothing", func() {
				_, err := service.Subscribe(context.Background(), params)
				Expect(err).To(HaveOccurred())

				appErr, ok := internalerrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(http.StatusPaymentRequired))
				Expect(mockStore.Watches).To(BeEmpty())
			})
		})
	})
})
