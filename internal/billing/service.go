// Package billing mediates between gateway users and the payment provider:
// customer resolution, saved payment methods, and the subscription lifecycle.
package billing

import (
	"context"

	"github.com/stripe/stripe-go/v79"

	"ask_gateway/internal/entitlement"
	"ask_gateway/internal/profile"
	"ask_gateway/internal/utils"
)

// Service exposes the billing operations behind the HTTP API.
type Service struct {
	api            CustomerAPI
	directory      *Directory
	profiles       profile.Store
	priceID        string
	publishableKey string
	logger         *utils.Logger
}

// NewService creates a billing service.
func NewService(api CustomerAPI, directory *Directory, profiles profile.Store, priceID, publishableKey string, logger *utils.Logger) *Service {
	return &Service{
		api:            api,
		directory:      directory,
		profiles:       profiles,
		priceID:        priceID,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

// Configured reports whether the frontend-facing billing configuration is
// complete. Both the publishable key and the price must be present.
func (s *Service) Configured() bool {
	return s.publishableKey != "" && s.priceID != ""
}

// ConfigResult is the public billing configuration for frontend bootstrap.
type ConfigResult struct {
	PublishableKey string `json:"publishable_key"`
	PriceID        string `json:"price_id"`
}

// Config returns the publishable key and the configured price.
func (s *Service) Config() ConfigResult {
	return ConfigResult{
		PublishableKey: s.publishableKey,
		PriceID:        s.priceID,
	}
}

// SetupIntentResult carries what the frontend needs to collect a card.
type SetupIntentResult struct {
	ClientSecret string `json:"client_secret"`
	CustomerID   string `json:"customer_id"`
}

// SetupIntent prepares an off-session card setup for the user's customer.
func (s *Service) SetupIntent(ctx context.Context, userID, email string) (SetupIntentResult, error) {
	custID, err := s.directory.EnsureCustomer(ctx, userID, email)
	if err != nil {
		return SetupIntentResult{}, err
	}

	si, err := s.api.CreateSetupIntent(ctx, custID)
	if err != nil {
		return SetupIntentResult{}, providerError(err)
	}

	return SetupIntentResult{
		ClientSecret: si.ClientSecret,
		CustomerID:   custID,
	}, nil
}

// SubscribeResult reports the created subscription. ClientSecret is set when
// the provider requires a payment confirmation step to activate it.
type SubscribeResult struct {
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	ClientSecret   string `json:"client_secret,omitempty"`
}

// Subscribe creates a subscription on the configured price.
func (s *Service) Subscribe(ctx context.Context, userID, email string) (SubscribeResult, error) {
	if s.priceID == "" {
		return SubscribeResult{}, ErrNotConfigured
	}

	custID, err := s.directory.EnsureCustomer(ctx, userID, email)
	if err != nil {
		return SubscribeResult{}, err
	}

	sub, err := s.api.CreateSubscription(ctx, custID, s.priceID)
	if err != nil {
		return SubscribeResult{}, providerError(err)
	}

	s.mirror(ctx, userID, custID, email, entitlement.Classify(string(sub.Status)))

	result := SubscribeResult{
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		result.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return result, nil
}

// Cancel schedules the user's active subscription to end at period close.
// The subscription keeps the user entitled until then. A user with no active
// subscription has nothing to cancel; that is not an error.
func (s *Service) Cancel(ctx context.Context, userID, email string) error {
	custID, err := s.directory.EnsureCustomer(ctx, userID, email)
	if err != nil {
		return err
	}

	subs, err := s.api.ListSubscriptions(ctx, custID, "active", 1)
	if err != nil {
		return providerError(err)
	}
	if len(subs) == 0 {
		return nil
	}

	updated, err := s.api.CancelAtPeriodEnd(ctx, subs[0].ID)
	if err != nil {
		return providerError(err)
	}

	s.mirror(ctx, userID, custID, email, entitlement.Classify(string(updated.Status)))
	return nil
}

// CardSummary describes the card on file.
type CardSummary struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
}

// PriceSummary describes the configured subscription price.
type PriceSummary struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Interval   string `json:"interval"`
}

// StatusResult is the full billing status for one user. RenewsAt is zero when
// there is no upcoming renewal, including when the subscription is set to
// cancel at period end.
type StatusResult struct {
	CustomerID           string        `json:"customer_id"`
	Email                string        `json:"email,omitempty"`
	Plan                 string        `json:"plan"`
	Active               bool          `json:"active"`
	RenewsAt             int64         `json:"renews_at,omitempty"`
	DefaultPaymentMethod *CardSummary  `json:"default_payment_method,omitempty"`
	Price                *PriceSummary `json:"price,omitempty"`
}

// Status resolves the user's customer and reports plan, renewal, payment
// method and price. Card and price lookups are best effort and omitted on
// failure.
func (s *Service) Status(ctx context.Context, userID, email string) (StatusResult, error) {
	custID, err := s.directory.EnsureCustomer(ctx, userID, email)
	if err != nil {
		return StatusResult{}, err
	}

	cust, err := s.api.Customer(ctx, custID)
	if err != nil {
		return StatusResult{}, providerError(err)
	}

	subs, err := s.api.ListSubscriptions(ctx, custID, "all", 1)
	if err != nil {
		return StatusResult{}, providerError(err)
	}

	// The customer record wins over the header email once one is set.
	if cust.Email != "" {
		email = cust.Email
	}

	result := StatusResult{
		CustomerID: custID,
		Email:      email,
	}

	var view entitlement.View
	if len(subs) > 0 {
		sub := subs[0]
		view = entitlement.Classify(string(sub.Status))
		if view.Active && !sub.CancelAtPeriodEnd {
			result.RenewsAt = sub.CurrentPeriodEnd
		}
	} else {
		view = entitlement.Classify("")
	}
	result.Plan = view.Plan
	result.Active = view.Active

	result.DefaultPaymentMethod = s.cardOnFile(ctx, cust)

	if s.priceID != "" {
		if price, err := s.api.Price(ctx, s.priceID); err != nil {
			s.logger.Warn("price lookup failed", "price_id", s.priceID, "error", err)
		} else {
			result.Price = &PriceSummary{
				ID:         price.ID,
				UnitAmount: price.UnitAmount,
				Currency:   string(price.Currency),
				Interval:   priceInterval(price),
			}
		}
	}

	s.mirror(ctx, userID, custID, email, view)

	return result, nil
}

// cardOnFile prefers the customer's default payment method and falls back to
// the first saved card.
func (s *Service) cardOnFile(ctx context.Context, cust *stripe.Customer) *CardSummary {
	if cust.InvoiceSettings != nil && cust.InvoiceSettings.DefaultPaymentMethod != nil {
		if card := cardSummary(cust.InvoiceSettings.DefaultPaymentMethod); card != nil {
			return card
		}
	}

	pms, err := s.api.ListCardPaymentMethods(ctx, cust.ID, 1)
	if err != nil {
		s.logger.Warn("payment method lookup failed", "customer_id", cust.ID, "error", err)
		return nil
	}
	if len(pms) == 0 {
		return nil
	}
	return cardSummary(pms[0])
}

func cardSummary(pm *stripe.PaymentMethod) *CardSummary {
	if pm.Card == nil {
		return nil
	}
	return &CardSummary{
		Brand:    string(pm.Card.Brand),
		Last4:    pm.Card.Last4,
		ExpMonth: pm.Card.ExpMonth,
		ExpYear:  pm.Card.ExpYear,
	}
}

func priceInterval(price *stripe.Price) string {
	if price.Recurring == nil {
		return ""
	}
	return string(price.Recurring.Interval)
}

// mirror writes the latest billing state to the profile store best effort.
func (s *Service) mirror(ctx context.Context, userID, customerID, email string, view entitlement.View) {
	err := s.profiles.Put(ctx, userID, profile.Mapping{
		CustomerID: customerID,
		Email:      email,
		Plan:       view.Plan,
		Active:     view.Active,
	})
	if err != nil {
		s.logger.Warn("profile mirror failed", "user_id", userID, "error", err)
	}
}
