package service

import (
	"strings"

	"wallet_client/internal/domain/entity"
	networkdefinition "wallet_client/internal/infrastructure/network/definition"
	"wallet_client/internal/pkg/utils"

	"github.com/shopspring/decimal"
)

const defaultNetworkDecimals = 18

// networkDecimals are the fractional-digit caps the chains accept for transfers.
var networkDecimals = map[string]int{
	"bitcoin":  8,
	"litecoin": 8,
	"dogecoin": 8,
	"ethereum": 18,
	"base":     18,
	"bsc":      18,
	"polygon":  18,
	"solana":   9,
	"tron":     6,
}

// PrecisionPolicy enforces per-network decimal caps. Amounts are truncated, never rounded.
type PrecisionPolicy struct {
	caps map[string]int
}

// NewPrecisionPolicy returns the policy with the built-in caps.
func NewPrecisionPolicy() *PrecisionPolicy {
	return &PrecisionPolicy{caps: networkDecimals}
}

// MaxDecimals returns the cap for networkID; unknown networks get 18.
func (p *PrecisionPolicy) MaxDecimals(networkID string) int {
	if c, ok := p.caps[networkdefinition.NormalizeNetworkID(networkID)]; ok {
		return c
	}
	return defaultNetworkDecimals
}

// TruncateInput cuts a value being typed to the network's cap.
func (p *PrecisionPolicy) TruncateInput(raw, networkID string) string {
	return utils.TruncateNumericString(raw, p.MaxDecimals(networkID))
}

// Validate checks amount for networkID against available and returns the truncated value.
func (p *PrecisionPolicy) Validate(amount, networkID, symbol string, available decimal.Decimal) (entity.ValidatedAmount, error) {
	places := p.MaxDecimals(networkID)
	amountErr := func(reason entity.AmountErrorReason) error {
		return &entity.AmountError{Reason: reason, Amount: amount, Network: networkID, Symbol: symbol, Decimals: places}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || d.Sign() <= 0 {
		return entity.ValidatedAmount{}, amountErr(entity.AmountInvalid)
	}

	truncated := utils.TruncateDecimal(d, places)
	if truncated.IsZero() {
		return entity.ValidatedAmount{}, amountErr(entity.AmountUnderflow)
	}
	if truncated.GreaterThan(available) {
		return entity.ValidatedAmount{}, amountErr(entity.AmountInsufficient)
	}

	return entity.ValidatedAmount{Amount: truncated, Formatted: truncated.String(), Decimals: places}, nil
}
