package service

import (
	"context"
	"sync"
	"time"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"
	"wallet_client/internal/pkg/metrics"

	"github.com/google/uuid"
)

// DefaultRefreshTimeout bounds how long Refresh waits for a pushed answer.
const DefaultRefreshTimeout = 5 * time.Second

// RefreshOutcome says how a Refresh call ended. None of them is an error for callers.
type RefreshOutcome string

const (
	RefreshPushed     RefreshOutcome = "push_response"
	RefreshTimedOut   RefreshOutcome = "push_timeout"
	RefreshREST       RefreshOutcome = "rest"
	RefreshRESTFailed RefreshOutcome = "rest_failed"
	RefreshCancelled  RefreshOutcome = "cancelled"
)

// BalanceSync keeps the catalog in step with the wallet service: every pushed balance
// payload replaces it, and Refresh asks for one on demand.
type BalanceSync struct {
	store   *CatalogStore
	push    port.PushChannel
	wallet  port.WalletAPI
	logger  port.Logger
	timeout time.Duration

	mu          sync.Mutex
	unsubscribe func()
	waiters     map[string]chan struct{} // pending Refresh calls by request id
}

// NewBalanceSync wires the sync. push may be nil, in which case only REST is used.
func NewBalanceSync(store *CatalogStore, push port.PushChannel, wallet port.WalletAPI, logger port.Logger, timeout time.Duration) *BalanceSync {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &BalanceSync{
		store:   store,
		push:    push,
		wallet:  wallet,
		logger:  logger,
		timeout: timeout,
		waiters: make(map[string]chan struct{}),
	}
}

// Start subscribes to the push channel. It must be called before the channel connects
// so the first pushed payload is not missed.
func (s *BalanceSync) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.push == nil || s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.push.Subscribe(s.handlePush)
}

// Stop removes the subscription.
func (s *BalanceSync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *BalanceSync) handlePush(msg entity.PushMessage) {
	if !msg.HasBalances() {
		return
	}
	if s.apply("push", msg.WalletBalances, msg.WalletAddresses) {
		s.notify(msg.RequestID)
	}
}

// notify wakes the Refresh waiting on requestID. An untagged push answers every waiter.
func (s *BalanceSync) notify(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.waiters {
		if requestID != "" && requestID != id {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *BalanceSync) addWaiter(requestID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.waiters[requestID] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.waiters, requestID)
		s.mu.Unlock()
	}
}

func (s *BalanceSync) apply(source string, raw []byte, addresses entity.WalletAddresses) bool {
	snap, err := s.store.Replace(raw, addresses)
	if err != nil {
		s.logger.Warn("Ignoring unusable balance payload", "source", source, "error", err)
		return false
	}
	metrics.BalanceUpdates.WithLabelValues(source).Inc()
	s.logger.Debug("Balances updated", "source", source, "assets", len(snap.Assets), "last_updated", snap.LastUpdated)
	return true
}

// Refresh asks for fresh balances. With a live push channel it races a matching answer
// against the timeout; only an answer that was applied to the catalog counts. Without a
// live channel it fetches once over REST. Failures are logged only.
func (s *BalanceSync) Refresh(ctx context.Context) RefreshOutcome {
	outcome := s.refresh(ctx)
	metrics.RefreshOutcomes.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (s *BalanceSync) refresh(ctx context.Context) RefreshOutcome {
	if s.push != nil && s.push.Connected() {
		s.Start()
		requestID := uuid.NewString()
		answered, done := s.addWaiter(requestID)
		defer done()

		if err := s.push.RequestBalances(ctx, requestID); err == nil {
			timer := time.NewTimer(s.timeout)
			defer timer.Stop()
			select {
			case <-answered:
				return RefreshPushed
			case <-timer.C:
				s.logger.Info("No balance push within timeout, keeping last known balances", "request_id", requestID, "timeout", s.timeout)
				return RefreshTimedOut
			case <-ctx.Done():
				return RefreshCancelled
			}
		} else {
			s.logger.Warn("Balance request over push channel failed, falling back to REST", "error", err)
		}
	}
	return s.fetchREST(ctx)
}

func (s *BalanceSync) fetchREST(ctx context.Context) RefreshOutcome {
	if s.wallet == nil {
		return RefreshRESTFailed
	}
	state, err := s.wallet.FetchWallet(ctx)
	if err != nil {
		s.logger.Warn("Balance fetch failed, keeping last known balances", "error", err)
		return RefreshRESTFailed
	}
	if !s.apply("rest", state.WalletBalances, state.WalletAddresses) {
		return RefreshRESTFailed
	}
	return RefreshREST
}
