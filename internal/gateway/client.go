package gateway

import (
	"context"
	"log/slog"
	"strings"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/drastik/donation-gateway/internal"
)

// Client exposes the gateway operations the billing services need. Every
// method either returns the remote object's normalized representation or a
// *internal.GatewayError; nothing retries internally.
type Client interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, params CustomerParams) (*Customer, error)
	CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error)
	CreatePlan(ctx context.Context, params PlanParams) (*Plan, error)
	CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, params SubscriptionParams) (*Subscription, error)
	FindActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	RetrieveBalanceTransaction(ctx context.Context, balanceTransactionID string) (*BalanceTransaction, error)
}

// CustomerParams carries what the gateway needs to create or update a
// customer. Token, when set, becomes the customer's payment source.
type CustomerParams struct {
	Email       string
	Description string
	Token       string
}

// ChargeParams is one one-time charge. Exactly one of CustomerID or Token
// must be set; Token alone is the degraded bare-card path.
type ChargeParams struct {
	Amount      int64
	Currency    string
	Description string
	CustomerID  string
	Token       string
}

type PlanParams struct {
	Key           string
	Amount        int64
	Currency      string
	Interval      string
	IntervalCount int64
}

type SubscriptionParams struct {
	CustomerID string
	PlanKey    string
	Prorate    bool
}

// Normalized remote objects. The SDK types never leave this package.

type Customer struct {
	ID          string
	Email       string
	Description string
	Livemode    bool
}

type Charge struct {
	ID                   string
	Amount               int64
	Currency             string
	Status               string
	Paid                 bool
	BalanceTransactionID string
}

type Plan struct {
	ID            string
	Amount        int64
	Interval      string
	IntervalCount int64
}

type Subscription struct {
	ID         string
	Status     string
	CustomerID string
	PlanKey    string
}

type BalanceTransaction struct {
	ID  string
	Fee int64
	Net int64
}

// stripeClient is the SDK-backed Client. Each processor gets its own
// client.API instance; the SDK's package-level key is never set.
type stripeClient struct {
	api    *client.API
	logger *slog.Logger
}

// NewClient builds a Client for one configured processor.
func NewClient(cfg internal.StripeConfig, logger *slog.Logger) Client {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &stripeClient{api: api, logger: logger}
}

func (c *stripeClient) CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error) {
	cp := customerParams(ctx, params)

	cust, err := c.api.Customers.New(cp)
	if err != nil {
		return nil, c.fail("create_customer", err)
	}
	return normalizeCustomer(cust), nil
}

func (c *stripeClient) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	cp := &stripe.CustomerParams{}
	cp.Context = ctx

	cust, err := c.api.Customers.Get(customerID, cp)
	if err != nil {
		return nil, c.fail("retrieve_customer", err)
	}
	return normalizeCustomer(cust), nil
}

func (c *stripeClient) UpdateCustomer(ctx context.Context, customerID string, params CustomerParams) (*Customer, error) {
	cp := customerParams(ctx, params)

	cust, err := c.api.Customers.Update(customerID, cp)
	if err != nil {
		return nil, c.fail("update_customer", err)
	}
	return normalizeCustomer(cust), nil
}

func (c *stripeClient) CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error) {
	chp := &stripe.ChargeParams{
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(strings.ToLower(params.Currency)),
		Description: stripe.String(params.Description),
	}
	chp.Context = ctx
	if params.CustomerID != "" {
		chp.Customer = stripe.String(params.CustomerID)
	} else if params.Token != "" {
		if err := chp.SetSource(params.Token); err != nil {
			return nil, c.fail("create_charge", err)
		}
	}

	ch, err := c.api.Charges.New(chp)
	if err != nil {
		return nil, c.fail("create_charge", err)
	}

	normalized := &Charge{
		ID:       ch.ID,
		Amount:   ch.Amount,
		Currency: string(ch.Currency),
		Status:   string(ch.Status),
		Paid:     ch.Paid,
	}
	if ch.BalanceTransaction != nil {
		normalized.BalanceTransactionID = ch.BalanceTransaction.ID
	}
	return normalized, nil
}

func (c *stripeClient) CreatePlan(ctx context.Context, params PlanParams) (*Plan, error) {
	pp := &stripe.PlanParams{
		ID:            stripe.String(params.Key),
		Amount:        stripe.Int64(params.Amount),
		Currency:      stripe.String(strings.ToLower(params.Currency)),
		Interval:      stripe.String(params.Interval),
		IntervalCount: stripe.Int64(params.IntervalCount),
		Product: &stripe.PlanProductParams{
			Name: stripe.String(params.Key),
		},
	}
	pp.Context = ctx

	pl, err := c.api.Plans.New(pp)
	if err != nil {
		return nil, c.fail("create_plan", err)
	}
	return &Plan{
		ID:            pl.ID,
		Amount:        pl.Amount,
		Interval:      string(pl.Interval),
		IntervalCount: pl.IntervalCount,
	}, nil
}

func (c *stripeClient) CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error) {
	sp := subscriptionParams(ctx, params)

	sub, err := c.api.Subscriptions.New(sp)
	if err != nil {
		return nil, c.fail("create_subscription", err)
	}
	return normalizeSubscription(sub, params.PlanKey), nil
}

func (c *stripeClient) UpdateSubscription(ctx context.Context, subscriptionID string, params SubscriptionParams) (*Subscription, error) {
	sp := subscriptionParams(ctx, params)

	sub, err := c.api.Subscriptions.Update(subscriptionID, sp)
	if err != nil {
		return nil, c.fail("update_subscription", err)
	}
	return normalizeSubscription(sub, params.PlanKey), nil
}

// FindActiveSubscription returns the customer's active subscription, or nil
// when there is none. The gateway setup used here allows at most one.
func (c *stripeClient) FindActiveSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	slp := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	slp.Context = ctx

	iter := c.api.Subscriptions.List(slp)
	for iter.Next() {
		sub := iter.Subscription()
		return normalizeSubscription(sub, ""), nil
	}
	if err := iter.Err(); err != nil {
		return nil, c.fail("list_subscriptions", err)
	}
	return nil, nil
}

func (c *stripeClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	scp := &stripe.SubscriptionCancelParams{}
	scp.Context = ctx

	if _, err := c.api.Subscriptions.Cancel(subscriptionID, scp); err != nil {
		return c.fail("cancel_subscription", err)
	}
	return nil
}

func (c *stripeClient) RetrieveBalanceTransaction(ctx context.Context, balanceTransactionID string) (*BalanceTransaction, error) {
	btp := &stripe.BalanceTransactionParams{}
	btp.Context = ctx

	bt, err := c.api.BalanceTransactions.Get(balanceTransactionID, btp)
	if err != nil {
		return nil, c.fail("retrieve_balance_transaction", err)
	}
	return &BalanceTransaction{ID: bt.ID, Fee: bt.Fee, Net: bt.Net}, nil
}

// customerParams builds v79 customer params. The token becomes the plain
// Source field; SetSource exists only on charge params in this SDK version.
func customerParams(ctx context.Context, params CustomerParams) *stripe.CustomerParams {
	cp := &stripe.CustomerParams{}
	cp.Context = ctx
	if params.Email != "" {
		cp.Email = stripe.String(params.Email)
	}
	if params.Description != "" {
		cp.Description = stripe.String(params.Description)
	}
	if params.Token != "" {
		cp.Source = stripe.String(params.Token)
	}
	return cp
}

func subscriptionParams(ctx context.Context, params SubscriptionParams) *stripe.SubscriptionParams {
	sp := &stripe.SubscriptionParams{
		Customer: stripe.String(params.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Plan: stripe.String(params.PlanKey)},
		},
	}
	sp.Context = ctx
	if !params.Prorate {
		sp.ProrationBehavior = stripe.String("none")
	}
	return sp
}

func normalizeCustomer(cust *stripe.Customer) *Customer {
	return &Customer{
		ID:          cust.ID,
		Email:       cust.Email,
		Description: cust.Description,
		Livemode:    cust.Livemode,
	}
}

func normalizeSubscription(sub *stripe.Subscription, planKey string) *Subscription {
	normalized := &Subscription{
		ID:      sub.ID,
		Status:  string(sub.Status),
		PlanKey: planKey,
	}
	if sub.Customer != nil {
		normalized.CustomerID = sub.Customer.ID
	}
	return normalized
}

// fail translates an SDK error into the tagged taxonomy and logs the full
// structured body at the point of occurrence, so diagnosis never depends on
// reproducing the failure.
func (c *stripeClient) fail(op string, err error) *internal.GatewayError {
	gwErr := TranslateError(op, err)
	c.logger.Error("gateway call failed",
		"op", op,
		"kind", gwErr.Kind,
		"error_type", gwErr.Type,
		"error_code", gwErr.Code,
		"message", gwErr.Message,
	)
	return gwErr
}
