package entity

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// InputMode says which amount field the user is editing; the other one is derived.
type InputMode string

const (
	InputModeToken InputMode = "token"
	InputModeUSD   InputMode = "usd"
)

// WithdrawalDraft is the session-scoped, mutable form state of one withdrawal.
// AmountToken and AmountUSD are display strings; whichever is not the active
// InputMode is always derived from the other.
type WithdrawalDraft struct {
	Asset            *Asset    `json:"asset,omitempty"`
	Network          *Network  `json:"network,omitempty"`
	RecipientAddress string    `json:"recipientAddress"`
	AmountToken      string    `json:"amountToken"`
	AmountUSD        string    `json:"amountUsd"`
	InputMode        InputMode `json:"inputMode"`
	Notes            string    `json:"notes,omitempty"`
	PIN              string    `json:"-"`
}

// WithdrawalResult is the receipt shown once after the wallet service accepted a send.
type WithdrawalResult struct {
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	Network         string    `json:"network"`
	ToAddress       string    `json:"toAddress"`
	FromAddress     string    `json:"fromAddress"`
	TxHash          string    `json:"txHash"`
	ExplorerURL     string    `json:"explorerUrl"`
	USDEquivalent   string    `json:"usdEquivalent"`
	Timestamp       time.Time `json:"timestamp"`
	ServerConfirmed bool      `json:"serverConfirmed"` // server returned a tx hash
}

// SendRequest is the body of the wallet service send-token call.
type SendRequest struct {
	RecipientAddress string `json:"recipientAddress"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	CurrencyKey      string `json:"currencyKey"`
	Network          string `json:"network"`
	NetworkName      string `json:"networkName"`
	PIN              string `json:"pin"`
	Type             string `json:"type"`
	USDEquivalent    string `json:"usdEquivalent"`
	Notes            string `json:"notes,omitempty"`
}

// SendReceipt holds whatever receipt fields the wallet service returned; any may be empty.
type SendReceipt struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Network       string `json:"network"`
	ToAddress     string `json:"toAddress"`
	FromAddress   string `json:"fromAddress"`
	TxHash        string `json:"txHash"`
	ExplorerURL   string `json:"explorerUrl"`
	USDEquivalent string `json:"usdEquivalent"`
	Timestamp     string `json:"timestamp"`
}

// UnmarshalJSON accepts a string or a number for every field, so a numeric amount or
// timestamp does not cost the rest of the receipt. Other value types read as "".
func (r *SendReceipt) UnmarshalJSON(data []byte) error {
	if !jsoniter.Valid(data) {
		return fmt.Errorf("send receipt: invalid JSON")
	}
	root := jsoniter.Get(data)
	switch root.ValueType() {
	case jsoniter.NilValue:
		return nil
	case jsoniter.ObjectValue:
	default:
		return fmt.Errorf("send receipt: expected an object")
	}

	field := func(key string) string {
		v := root.Get(key)
		switch v.ValueType() {
		case jsoniter.StringValue, jsoniter.NumberValue:
			// number values alias data
			return strings.Clone(v.ToString())
		default:
			return ""
		}
	}
	*r = SendReceipt{
		Amount:        field("amount"),
		Currency:      field("currency"),
		Network:       field("network"),
		ToAddress:     field("toAddress"),
		FromAddress:   field("fromAddress"),
		TxHash:        field("txHash"),
		ExplorerURL:   field("explorerUrl"),
		USDEquivalent: field("usdEquivalent"),
		Timestamp:     field("timestamp"),
	}
	return nil
}

// PinVerification is the wallet service answer to a PIN check.
type PinVerification struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WalletState is the one-shot REST answer carrying the same data as a balance push.
type WalletState struct {
	WalletBalances  jsoniter.RawMessage `json:"walletBalances"`
	WalletAddresses WalletAddresses     `json:"walletAddresses"`
}

// ValidatedAmount is an amount that passed the precision policy.
type ValidatedAmount struct {
	Amount    decimal.Decimal
	Formatted string
	Decimals  int
}
