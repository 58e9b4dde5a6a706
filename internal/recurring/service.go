package recurring

import (
	"context"
	"log/slog"
	"time"

	"github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/core/datamodel/billing"
	"github.com/drastik/donation-gateway/internal/gateway"
	"github.com/drastik/donation-gateway/internal/mirror"
)

// DefaultIgnoreList pre-declares the plan-creation conflict that two
// concurrent requests for the same cadence and amount produce. Treating it
// as success is what makes plan creation idempotent.
var DefaultIgnoreList = []gateway.IgnorePattern{
	{Kind: internal.GatewayConflict, Type: "invalid_request_error", Message: "plan already exists"},
}

// SubscribeParams describes one recurring contribution being established.
type SubscribeParams struct {
	GatewayCustomerID string
	Amount            int64
	Currency          string
	FrequencyUnit     string
	FrequencyInterval int64
	Installments      int64
	InvoiceID         string
}

// SubscribeResult mirrors the one-time charge result shape. Net is the
// local approximation amount - fee: the balance transaction for the first
// recurring charge may not be queryable yet, so there is nothing
// authoritative to read.
type SubscribeResult struct {
	TransactionID string
	Fee           float64
	Net           float64
}

// Service drives the recurring-subscription state machine: ensure the plan,
// supersede any active subscription, attach the new one, and replace the
// local watch bookkeeping.
type Service struct {
	gateway    gateway.Client
	store      mirror.Store
	cfg        internal.StripeConfig
	ignoreList []gateway.IgnorePattern
	logger     *slog.Logger
}

func NewService(gw gateway.Client, store mirror.Store, cfg internal.StripeConfig, ignoreList []gateway.IgnorePattern, logger *slog.Logger) *Service {
	if ignoreList == nil {
		ignoreList = DefaultIgnoreList
	}
	return &Service{
		gateway:    gw,
		store:      store,
		cfg:        cfg,
		ignoreList: ignoreList,
		logger:     logger,
	}
}

func (s *Service) Subscribe(ctx context.Context, params SubscribeParams) (*SubscribeResult, error) {
	planKey := PlanKey(params.FrequencyUnit, params.FrequencyInterval, params.Amount, s.cfg.Livemode)

	if err := s.ensurePlan(ctx, planKey, params); err != nil {
		return nil, err
	}

	if err := s.supersedeActiveSubscription(ctx, params.GatewayCustomerID); err != nil {
		return nil, err
	}

	callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
	sub, err := s.gateway.CreateSubscription(callCtx, gateway.SubscriptionParams{
		CustomerID: params.GatewayCustomerID,
		PlanKey:    planKey,
		Prorate:    false,
	})
	cancel()
	if err != nil {
		appErr, _ := gateway.Classify(err, nil, s.logger)
		return nil, appErr
	}

	if err := s.replaceWatch(params, planKey); err != nil {
		return nil, internal.NewInternalError("failed to record subscription watch", err)
	}

	s.logger.Info("recurring contribution established",
		"subscription_id", sub.ID,
		"plan_key", planKey,
		"customer_id", params.GatewayCustomerID,
		"invoice_id", params.InvoiceID,
		"installments", params.Installments,
	)

	// Fee is unknown until the first invoice settles; net stays the
	// documented amount-minus-fee approximation.
	fee := 0.0
	return &SubscribeResult{
		TransactionID: sub.ID,
		Fee:           fee,
		Net:           float64(params.Amount)/100 - fee,
	}, nil
}

// ensurePlan creates the remote plan when the mirror has no record of it.
// A "plan already exists" conflict on the ignore-list counts as success;
// either way the mirror learns the key.
func (s *Service) ensurePlan(ctx context.Context, planKey string, params SubscribeParams) error {
	exists, err := s.store.PlanExists(planKey)
	if err != nil {
		return internal.NewInternalError("failed to check plan mapping", err)
	}
	if exists {
		return nil
	}

	callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
	_, err = s.gateway.CreatePlan(callCtx, gateway.PlanParams{
		Key:           planKey,
		Amount:        params.Amount,
		Currency:      params.Currency,
		Interval:      params.FrequencyUnit,
		IntervalCount: params.FrequencyInterval,
	})
	cancel()
	if err != nil {
		appErr, ignored := gateway.Classify(err, s.ignoreList, s.logger)
		if !ignored {
			return appErr
		}
	}

	if err := s.store.SavePlanMapping(planKey); err != nil {
		return internal.NewInternalError("failed to save plan mapping", err)
	}
	return nil
}

// supersedeActiveSubscription cancels whatever subscription the customer
// currently has. The gateway supports one active subscription per customer,
// so a new recurring contribution always replaces the old one outright.
func (s *Service) supersedeActiveSubscription(ctx context.Context, customerID string) error {
	callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
	existing, err := s.gateway.FindActiveSubscription(callCtx, customerID)
	cancel()
	if err != nil {
		appErr, _ := gateway.Classify(err, nil, s.logger)
		return appErr
	}
	if existing == nil {
		return nil
	}

	s.logger.Info("superseding active subscription",
		"customer_id", customerID,
		"subscription_id", existing.ID,
	)

	callCtx, cancel = internal.WithTimeout(ctx, s.cfg.CallTimeout)
	err = s.gateway.CancelSubscription(callCtx, existing.ID)
	cancel()
	if err != nil {
		appErr, _ := gateway.Classify(err, nil, s.logger)
		return appErr
	}
	return nil
}

// replaceWatch cancels the prior local lineage, if any, and inserts the new
// watch row. Exactly one lineage is tracked per customer afterwards.
func (s *Service) replaceWatch(params SubscribeParams, planKey string) error {
	prior, err := s.store.FindActiveWatch(params.GatewayCustomerID)
	if err != nil {
		return err
	}
	if prior != nil {
		if err := s.store.CancelWatch(prior.LocalInvoiceID); err != nil {
			return err
		}
		s.logger.Info("cancelled superseded recurring contribution",
			"invoice_id", prior.LocalInvoiceID,
			"customer_id", params.GatewayCustomerID,
		)
	}

	if err := s.store.CreateRecurringContribution(&billing.RecurringContribution{
		InvoiceID:         params.InvoiceID,
		Amount:            params.Amount,
		Currency:          params.Currency,
		FrequencyUnit:     params.FrequencyUnit,
		FrequencyInterval: params.FrequencyInterval,
		Installments:      params.Installments,
		Status:            billing.RecurringStatusInProgress,
	}); err != nil {
		return err
	}

	return s.store.SaveWatch(&billing.SubscriptionWatch{
		GatewayCustomerID: params.GatewayCustomerID,
		LocalInvoiceID:    params.InvoiceID,
		EndTime:           EndTime(time.Now().UTC(), params.FrequencyUnit, params.FrequencyInterval, params.Installments),
		IsLive:            s.cfg.Livemode,
	})
}
