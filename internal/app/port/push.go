package port

import (
	"context"

	"wallet_client/internal/domain/entity"
)

// PushChannel is the long-lived realtime subscription to wallet events.
type PushChannel interface {
	// Connected reports whether the channel currently has a live connection.
	Connected() bool

	// Subscribe registers a handler for every inbound message and returns a func removing it.
	Subscribe(handler func(entity.PushMessage)) (unsubscribe func())

	// RequestBalances asks the server for an on-demand balance push tagged with requestID.
	RequestBalances(ctx context.Context, requestID string) error
}
