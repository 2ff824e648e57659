package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"ask_gateway/internal/profile"
	"ask_gateway/internal/utils"
)

// memStore is an in-memory profile.Store for tests.
type memStore struct {
	mu       sync.Mutex
	mappings map[string]profile.Mapping
	getErr   error
	putErr   error
}

func newMemStore() *memStore {
	return &memStore{mappings: make(map[string]profile.Mapping)}
}

func (s *memStore) Get(ctx context.Context, userID string) (profile.Mapping, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return profile.Mapping{}, false, s.getErr
	}
	m, ok := s.mappings[userID]
	return m, ok, nil
}

func (s *memStore) Put(ctx context.Context, userID string, m profile.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.mappings[userID] = m
	return nil
}

// fakeAPI implements CustomerAPI in memory, counting calls.
type fakeAPI struct {
	customersByEmail map[string]*stripe.Customer
	customersByID    map[string]*stripe.Customer
	subscriptions    []*stripe.Subscription
	paymentMethods   []*stripe.PaymentMethod
	price            *stripe.Price

	searchCalls int
	createCalls int
	searchErr   error
	createErr   error
	subErr      error
	listErr     error

	nextCustomerID     int
	nextSubscriptionID int
	subStatus          stripe.SubscriptionStatus
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		customersByEmail: make(map[string]*stripe.Customer),
		customersByID:    make(map[string]*stripe.Customer),
		subStatus:        stripe.SubscriptionStatusActive,
	}
}

func (f *fakeAPI) SearchCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.customersByEmail[email], nil
}

func (f *fakeAPI) CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextCustomerID++
	cust := &stripe.Customer{
		ID:    fmt.Sprintf("cus_%d", f.nextCustomerID),
		Email: email,
	}
	if email != "" {
		f.customersByEmail[email] = cust
	}
	f.customersByID[cust.ID] = cust
	return cust, nil
}

func (f *fakeAPI) Customer(ctx context.Context, id string) (*stripe.Customer, error) {
	cust, ok := f.customersByID[id]
	if !ok {
		return nil, &stripe.Error{Msg: "No such customer"}
	}
	return cust, nil
}

func (f *fakeAPI) CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error) {
	return &stripe.SetupIntent{ClientSecret: "seti_secret_" + customerID}, nil
}

func (f *fakeAPI) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.nextSubscriptionID++
	sub := &stripe.Subscription{
		ID:               fmt.Sprintf("sub_%d", f.nextSubscriptionID),
		Status:           f.subStatus,
		CurrentPeriodEnd: 1790000000,
		LatestInvoice: &stripe.Invoice{
			PaymentIntent: &stripe.PaymentIntent{ClientSecret: "pi_secret"},
		},
	}
	f.subscriptions = append(f.subscriptions, sub)
	return sub, nil
}

func (f *fakeAPI) ListSubscriptions(ctx context.Context, customerID, status string, limit int64) ([]*stripe.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*stripe.Subscription
	for _, sub := range f.subscriptions {
		if status != "all" && string(sub.Status) != status {
			continue
		}
		out = append(out, sub)
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAPI) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	for _, sub := range f.subscriptions {
		if sub.ID == subscriptionID {
			sub.CancelAtPeriodEnd = true
			return sub, nil
		}
	}
	return nil, &stripe.Error{Msg: "No such subscription"}
}

func (f *fakeAPI) Price(ctx context.Context, id string) (*stripe.Price, error) {
	if f.price == nil {
		return nil, &stripe.Error{Msg: "No such price"}
	}
	return f.price, nil
}

func (f *fakeAPI) ListCardPaymentMethods(ctx context.Context, customerID string, limit int64) ([]*stripe.PaymentMethod, error) {
	return f.paymentMethods, nil
}

func testLogger() *utils.Logger {
	return utils.NewLogger("test", utils.Error)
}

func TestEnsureCustomerUsesMirror(t *testing.T) {
	api := newFakeAPI()
	store := newMemStore()
	store.mappings["user-1"] = profile.Mapping{CustomerID: "cus_cached"}

	dir := NewDirectory(api, store, testLogger())

	id, err := dir.EnsureCustomer(context.Background(), "user-1", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_cached", id)
	assert.Zero(t, api.searchCalls)
	assert.Zero(t, api.createCalls)
}

func TestEnsureCustomerAdoptsByEmail(t *testing.T) {
	api := newFakeAPI()
	api.customersByEmail["jane@example.com"] = &stripe.Customer{ID: "cus_existing", Email: "jane@example.com"}
	store := newMemStore()

	dir := NewDirectory(api, store, testLogger())

	id, err := dir.EnsureCustomer(context.Background(), "user-1", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", id)
	assert.Zero(t, api.createCalls)

	m, ok, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cus_existing", m.CustomerID)
}

func TestEnsureCustomerCreatesOnce(t *testing.T) {
	api := newFakeAPI()
	store := newMemStore()
	dir := NewDirectory(api, store, testLogger())

	first, err := dir.EnsureCustomer(context.Background(), "user-1", "jane@example.com")
	require.NoError(t, err)

	second, err := dir.EnsureCustomer(context.Background(), "user-1", "jane@example.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.createCalls)
}

func TestEnsureCustomerWithoutEmailSkipsSearch(t *testing.T) {
	api := newFakeAPI()
	dir := NewDirectory(api, newMemStore(), testLogger())

	_, err := dir.EnsureCustomer(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Zero(t, api.searchCalls)
	assert.Equal(t, 1, api.createCalls)
}

func TestEnsureCustomerSurvivesStoreFailure(t *testing.T) {
	api := newFakeAPI()
	store := newMemStore()
	store.getErr = errors.New("redis down")
	store.putErr = errors.New("redis down")

	dir := NewDirectory(api, store, testLogger())

	id, err := dir.EnsureCustomer(context.Background(), "user-1", "jane@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestEnsureCustomerSurvivesSearchFailure(t *testing.T) {
	api := newFakeAPI()
	api.searchErr = errors.New("search unavailable")
	dir := NewDirectory(api, newMemStore(), testLogger())

	id, err := dir.EnsureCustomer(context.Background(), "user-1", "jane@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, api.createCalls)
}

func TestEnsureCustomerWrapsCreateFailure(t *testing.T) {
	api := newFakeAPI()
	api.createErr = &stripe.Error{Msg: "Your card was declined"}
	dir := NewDirectory(api, newMemStore(), testLogger())

	_, err := dir.EnsureCustomer(context.Background(), "user-1", "")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Your card was declined", pe.Msg)
}
