package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeGateway is an in-memory billing provider.
type fakeGateway struct {
	mu sync.Mutex

	subs      map[string]*ProviderSubscription
	customers map[string]string // customer id -> tenant
	checkouts []CheckoutRequest
	canceled  []string

	cancelErr   error
	updateErr   error
	retrieveErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		subs:      make(map[string]*ProviderSubscription),
		customers: make(map[string]string),
	}
}

func (f *fakeGateway) put(ps *ProviderSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ps
	f.subs[ps.ID] = &cp
}

func (f *fakeGateway) CreateCustomer(_ context.Context, _, _, tenantID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("cus_%d", len(f.customers)+1)
	f.customers[id] = tenantID
	return id, nil
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.test/" + req.PriceRef, nil
}

func (f *fakeGateway) UpdateSubscription(_ context.Context, subRef, priceRef string) (*ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	ps, ok := f.subs[subRef]
	if !ok {
		return nil, errors.New("no such subscription: " + subRef)
	}
	ps.PriceID = priceRef
	cp := *ps
	return &cp, nil
}

func (f *fakeGateway) CancelSubscription(_ context.Context, subRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, subRef)
	return f.cancelErr
}

func (f *fakeGateway) CreatePortalSession(_ context.Context, customerRef, _ string) (string, error) {
	return "https://portal.test/" + customerRef, nil
}

func (f *fakeGateway) RetrieveSubscription(_ context.Context, subRef string) (*ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	ps, ok := f.subs[subRef]
	if !ok {
		return nil, errors.New("no such subscription: " + subRef)
	}
	cp := *ps
	return &cp, nil
}

var _ Gateway = (*fakeGateway)(nil)
