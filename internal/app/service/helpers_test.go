package service

import (
	"context"
	"sync"

	"wallet_client/internal/domain/entity"
	networkdefinition "wallet_client/internal/infrastructure/network/definition"
	"wallet_client/internal/pkg/logger"
)

const nestedFixture = `{
  "currencies": {
    "usdt": {"networks": {
      "tron":     {"balance": "100.5", "priceUSD": "1.0002", "percentageChange24h": "0.01", "valueUSD": "100.52"},
      "ethereum": {"balance": 20, "priceUSD": 1, "valueUSD": 20}
    }},
    "btc": {"networks": {"bitcoin": {"balance": "0.5", "priceUSD": "60000", "valueUSD": "30000"}}},
    "eth": {"networks": {
      "ethereum": {"balance": "1", "valueUSD": null},
      "base":     {"balance": "0.25", "priceUSD": "3000", "percentageChange24h": -2.5, "valueUSD": "750"}
    }},
    "shib": {"networks": {"ethereum": {"balance": "1000000"}}}
  }
}`

func newTestNetworks() *networkdefinition.NetworkDefinitionProvider {
	return networkdefinition.NewNetworkDefinitionProvider(logger.NewNop())
}

func newTestStore() *CatalogStore {
	return NewCatalogStore(NewAssetCatalog(newTestNetworks()), logger.NewNop())
}

type fakeWallet struct {
	mu sync.Mutex

	verify    entity.PinVerification
	verifyErr error
	receipt   entity.SendReceipt
	sendErr   error
	state     entity.WalletState
	fetchErr  error

	// gate, when set, blocks SendToken until it is closed.
	gate    chan struct{}
	entered chan struct{}

	verifyCalls int
	sendCalls   int
	fetchCalls  int
	lastSend    entity.SendRequest
}

func (w *fakeWallet) HasPin(context.Context) (bool, error)   { return true, nil }
func (w *fakeWallet) CreatePin(context.Context, string) error { return nil }

func (w *fakeWallet) VerifyPin(_ context.Context, _ string) (entity.PinVerification, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.verifyCalls++
	return w.verify, w.verifyErr
}

func (w *fakeWallet) FetchWallet(context.Context) (entity.WalletState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fetchCalls++
	return w.state, w.fetchErr
}

func (w *fakeWallet) SendToken(_ context.Context, req entity.SendRequest) (entity.SendReceipt, error) {
	w.mu.Lock()
	w.sendCalls++
	w.lastSend = req
	gate, entered := w.gate, w.entered
	w.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.receipt, w.sendErr
}

type fakePush struct {
	mu        sync.Mutex
	connected bool
	handlers  map[int]func(entity.PushMessage)
	nextID    int

	requestErr error
	// onRequest runs after a balance request; tests use it to answer.
	onRequest func(requestID string)
	requests  []string
}

func newFakePush(connected bool) *fakePush {
	return &fakePush{connected: connected, handlers: make(map[int]func(entity.PushMessage))}
}

func (p *fakePush) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePush) Subscribe(h func(entity.PushMessage)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = h
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *fakePush) RequestBalances(_ context.Context, requestID string) error {
	p.mu.Lock()
	p.requests = append(p.requests, requestID)
	err, hook := p.requestErr, p.onRequest
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		go hook(requestID)
	}
	return nil
}

// emit delivers msg to handlers in subscription order.
func (p *fakePush) emit(msg entity.PushMessage) {
	p.mu.Lock()
	n := p.nextID
	p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.mu.Lock()
		h, ok := p.handlers[i]
		p.mu.Unlock()
		if ok {
			h(msg)
		}
	}
}
