package contribution

import (
	"context"
	"log/slog"

	"github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/core/datamodel/billing"
	"github.com/drastik/donation-gateway/internal/gateway"
	"github.com/drastik/donation-gateway/internal/mirror"
	"github.com/drastik/donation-gateway/internal/recurring"
)

// RecurringAPI is the slice of the recurring manager the orchestrator
// delegates to when recurring fields are present.
type RecurringAPI interface {
	Subscribe(ctx context.Context, params recurring.SubscribeParams) (*recurring.SubscribeResult, error)
}

// Service drives one-time contributions end to end: resolve or create the
// gateway customer, attach the payment token, submit the charge, and pull
// fee/net from the balance transaction.
type Service struct {
	gateway   gateway.Client
	store     mirror.Store
	recurring RecurringAPI
	cfg       internal.StripeConfig
	logger    *slog.Logger
}

func NewService(gw gateway.Client, store mirror.Store, recurringSvc RecurringAPI, cfg internal.StripeConfig, logger *slog.Logger) *Service {
	return &Service{
		gateway:   gw,
		store:     store,
		recurring: recurringSvc,
		cfg:       cfg,
		logger:    logger,
	}
}

// Charge processes one contribution. A zero or negative amount is returned
// unchanged with no remote calls made: free registrations flow through the
// same form and are not an error.
func (s *Service) Charge(ctx context.Context, req *ContributionRequest) (*ChargeResult, error) {
	if req.Amount <= 0 {
		s.logger.Info("zero amount contribution, skipping gateway", "email", req.Email)
		return &ChargeResult{Amount: req.Amount}, nil
	}

	if req.PaymentToken == "" {
		return nil, internal.NewFatalError("no payment token supplied", internal.ErrCodeMissingToken)
	}

	customerID, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.IsRecurring() {
		subResult, err := s.recurring.Subscribe(ctx, recurring.SubscribeParams{
			GatewayCustomerID: customerID,
			Amount:            req.Amount,
			Currency:          req.Currency,
			FrequencyUnit:     req.FrequencyUnit,
			FrequencyInterval: defaultInterval(req.FrequencyInterval),
			Installments:      req.Installments,
			InvoiceID:         req.InvoiceID,
		})
		if err != nil {
			return nil, err
		}
		return &ChargeResult{
			Amount:        req.Amount,
			TransactionID: subResult.TransactionID,
			Fee:           subResult.Fee,
			Net:           subResult.Net,
			Recurring:     true,
		}, nil
	}

	return s.submitCharge(ctx, req, customerID)
}

// resolveCustomer returns the gateway customer id for the payer, creating
// the remote customer and its mapping on first contact. A mapping that
// points at a dead remote customer is deleted and recreated, so the mirror
// never stays stale for more than one request.
func (s *Service) resolveCustomer(ctx context.Context, req *ContributionRequest) (string, error) {
	mapping, err := s.store.FindCustomerByEmail(req.Email)
	if err != nil {
		return "", internal.NewInternalError("failed to look up customer mapping", err)
	}

	if mapping == nil {
		return s.createCustomer(ctx, req)
	}

	callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
	_, err = s.gateway.RetrieveCustomer(callCtx, mapping.GatewayCustomerID)
	cancel()
	if err != nil {
		s.logger.Warn("customer mapping is stale, recreating",
			"email", req.Email,
			"customer_id", mapping.GatewayCustomerID,
		)
		if delErr := s.store.DeleteCustomerMapping(req.Email); delErr != nil {
			return "", internal.NewInternalError("failed to delete stale customer mapping", delErr)
		}
		return s.createCustomer(ctx, req)
	}

	// Tokens are single-use: each fresh submission updates the customer's
	// source. The second charge of one submission must not replay it.
	if !req.SecondCharge {
		callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
		_, err = s.gateway.UpdateCustomer(callCtx, mapping.GatewayCustomerID, gateway.CustomerParams{
			Token: req.PaymentToken,
		})
		cancel()
		if err != nil {
			appErr, _ := gateway.Classify(err, nil, s.logger)
			return "", appErr
		}
	}

	return mapping.GatewayCustomerID, nil
}

func (s *Service) createCustomer(ctx context.Context, req *ContributionRequest) (string, error) {
	callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
	cust, err := s.gateway.CreateCustomer(callCtx, gateway.CustomerParams{
		Email:       req.Email,
		Description: req.Description,
		Token:       req.PaymentToken,
	})
	cancel()
	if err != nil {
		// No charge is attempted without a customer.
		appErr, _ := gateway.Classify(err, nil, s.logger)
		return "", appErr
	}

	mapping := &billing.CustomerMapping{
		Email:             req.Email,
		GatewayCustomerID: cust.ID,
	}
	if err := s.store.SaveCustomerMapping(mapping); err != nil {
		return "", internal.NewInternalError("failed to save customer mapping", err)
	}

	// A concurrent request may have won the insert; the read-back id is
	// the one every caller converges on.
	return mapping.GatewayCustomerID, nil
}

func (s *Service) submitCharge(ctx context.Context, req *ContributionRequest, customerID string) (*ChargeResult, error) {
	// resolveCustomer never hands back an empty id without an error, so the
	// charge is always placed against the customer, not the raw token.
	params := gateway.ChargeParams{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		CustomerID:  customerID,
	}

	callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
	ch, err := s.gateway.CreateCharge(callCtx, params)
	cancel()
	if err != nil {
		appErr, _ := gateway.Classify(err, nil, s.logger)
		return nil, appErr
	}

	result := &ChargeResult{
		Amount:        req.Amount,
		TransactionID: ch.ID,
	}

	// Fee and net come from the settled balance transaction; amounts are
	// minor units of a 2-decimal currency.
	if ch.BalanceTransactionID != "" {
		callCtx, cancel := internal.WithTimeout(ctx, s.cfg.CallTimeout)
		bt, btErr := s.gateway.RetrieveBalanceTransaction(callCtx, ch.BalanceTransactionID)
		cancel()
		if btErr != nil {
			s.logger.Warn("balance transaction lookup failed, fee/net unavailable",
				"charge_id", ch.ID,
				"balance_transaction_id", ch.BalanceTransactionID,
				"error", btErr,
			)
		} else {
			result.Fee = float64(bt.Fee) / 100
			result.Net = float64(bt.Net) / 100
		}
	}

	s.logger.Info("contribution charged",
		"charge_id", ch.ID,
		"amount", req.Amount,
		"currency", req.Currency,
		"fee", result.Fee,
		"net", result.Net,
	)
	return result, nil
}

func defaultInterval(interval int64) int64 {
	if interval < 1 {
		return 1
	}
	return interval
}
