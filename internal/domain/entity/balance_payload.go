package entity

import "github.com/shopspring/decimal"

// PayloadKind tags which backend shape a BalancePayload was decoded from.
type PayloadKind int

const (
	// PayloadEmpty means nothing usable was pushed (null, not an object, or no entries).
	PayloadEmpty PayloadKind = iota
	// PayloadNested is {currencies: {key: {networks: {netKey: BalanceFields}}}}.
	PayloadNested
	// PayloadFlat is the legacy {key: BalanceFields} map.
	PayloadFlat
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadNested:
		return "nested"
	case PayloadFlat:
		return "flat"
	default:
		return "empty"
	}
}

// BalanceFields are the per-entry numbers the backend reports. Has* flags record whether
// the field was present and non-null, so "first network that reports a price" is decidable.
type BalanceFields struct {
	Balance      decimal.Decimal
	PriceUSD     decimal.Decimal
	PctChange24h decimal.Decimal
	ValueUSD     decimal.Decimal
	HasPrice     bool
	HasChange    bool
}

// NetworkEntry is one network under a nested currency, in payload order.
type NetworkEntry struct {
	Key    string
	Fields BalanceFields
}

// NestedCurrency is one currency of the nested shape, networks in payload order.
type NestedCurrency struct {
	Key      string
	Networks []NetworkEntry
}

// FlatEntry is one currency of the legacy flat shape.
type FlatEntry struct {
	Key    string
	Fields BalanceFields
}

// BalancePayload is the tagged union of the two backend shapes. Exactly one of
// Nested / Flat is meaningful, selected by Kind.
type BalancePayload struct {
	Kind   PayloadKind
	Nested []NestedCurrency
	Flat   []FlatEntry
}
