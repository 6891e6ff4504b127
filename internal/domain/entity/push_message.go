package entity

import jsoniter "github.com/json-iterator/go"

// PushMessage is one inbound event of the push channel. WalletBalances is kept raw:
// it is decoded into a BalancePayload by the catalog, which needs key order.
type PushMessage struct {
	Type            string              `json:"type"`
	RequestID       string              `json:"requestId,omitempty"`
	WalletBalances  jsoniter.RawMessage `json:"walletBalances,omitempty"`
	WalletAddresses WalletAddresses     `json:"walletAddresses,omitempty"`
}

// HasBalances reports whether the message carries a balance payload.
func (m PushMessage) HasBalances() bool {
	return len(m.WalletBalances) > 0 && string(m.WalletBalances) != "null"
}
