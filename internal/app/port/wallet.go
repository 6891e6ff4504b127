package port

import (
	"context"

	"wallet_client/internal/domain/entity"
)

// WalletAPI is the remote wallet service. All balance, PIN and transfer logic lives there.
type WalletAPI interface {
	// HasPin reports whether the user already set a transaction PIN.
	HasPin(ctx context.Context) (bool, error)

	// CreatePin sets the user's transaction PIN.
	CreatePin(ctx context.Context, pin string) error

	// VerifyPin asks the service whether pin is correct. A nil error with
	// Success=false is a rejection carrying the server's message.
	VerifyPin(ctx context.Context, pin string) (entity.PinVerification, error)

	// FetchWallet returns balances and deposit addresses in one shot.
	FetchWallet(ctx context.Context) (entity.WalletState, error)

	// SendToken submits a withdrawal.
	SendToken(ctx context.Context, req entity.SendRequest) (entity.SendReceipt, error)
}
