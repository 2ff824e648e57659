package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// CustomerAPI is the slice of the payment provider the billing service uses.
// It exists so tests can substitute a fake for the hosted API.
type CustomerAPI interface {
	SearchCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error)
	Customer(ctx context.Context, id string) (*stripe.Customer, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error)
	CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error)
	ListSubscriptions(ctx context.Context, customerID, status string, limit int64) ([]*stripe.Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	Price(ctx context.Context, id string) (*stripe.Price, error)
	ListCardPaymentMethods(ctx context.Context, customerID string, limit int64) ([]*stripe.PaymentMethod, error)
}

// stripeAPI implements CustomerAPI against the Stripe client.
type stripeAPI struct {
	api *client.API
}

// NewStripeAPI creates a CustomerAPI backed by Stripe.
func NewStripeAPI(secretKey string) CustomerAPI {
	return &stripeAPI{api: client.New(secretKey, nil)}
}

func (s *stripeAPI) SearchCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("email:'%s'", email),
			Limit:   stripe.Int64(1),
			Context: ctx,
		},
	}
	it := s.api.Customers.Search(params)
	if it.Next() {
		return it.Customer(), nil
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *stripeAPI) CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", userID)
	return s.api.Customers.New(params)
}

func (s *stripeAPI) Customer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddExpand("invoice_settings.default_payment_method")
	return s.api.Customers.Get(id, params)
}

func (s *stripeAPI) CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String("off_session"),
	}
	params.Context = ctx
	return s.api.SetupIntents.New(params)
}

func (s *stripeAPI) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	return s.api.Subscriptions.New(params)
}

func (s *stripeAPI) ListSubscriptions(ctx context.Context, customerID, status string, limit int64) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(status),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var subs []*stripe.Subscription
	it := s.api.Subscriptions.List(params)
	for it.Next() {
		subs = append(subs, it.Subscription())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *stripeAPI) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	return s.api.Subscriptions.Update(subscriptionID, params)
}

func (s *stripeAPI) Price(ctx context.Context, id string) (*stripe.Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	return s.api.Prices.Get(id, params)
}

func (s *stripeAPI) ListCardPaymentMethods(ctx context.Context, customerID string, limit int64) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String("card"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var pms []*stripe.PaymentMethod
	it := s.api.PaymentMethods.List(params)
	for it.Next() {
		pms = append(pms, it.PaymentMethod())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return pms, nil
}
