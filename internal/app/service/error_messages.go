package service

import (
	"errors"
	"strings"

	"wallet_client/internal/domain/entity"
)

// Known wallet service rejections and the text shown for them. Matching is
// case-insensitive on a substring of the server message.
var transactionMessages = []struct {
	needle  string
	message string
}{
	{"too many decimals", "Amount has more decimal places than this network supports."},
	{"underflow", "Amount is too small to be sent on this network."},
	{"insufficient", "Insufficient balance for this withdrawal."},
	{"invalid address", "The recipient address is not valid for the selected network."},
}

// FriendlyTransactionMessage maps a server error to user-facing text. Unknown messages pass through.
func FriendlyTransactionMessage(serverMsg string) string {
	lower := strings.ToLower(serverMsg)
	for _, m := range transactionMessages {
		if strings.Contains(lower, m.needle) {
			return m.message
		}
	}
	return serverMsg
}

func amountErrorMessage(err *entity.AmountError) string {
	switch err.Reason {
	case entity.AmountInsufficient:
		return "Insufficient balance for this withdrawal."
	case entity.AmountUnderflow:
		return "Amount is too small to be sent on this network."
	default:
		return "Enter a valid amount greater than zero."
	}
}

// serverMessage extracts the wallet service's own message from err when it has one.
func serverMessage(err error) string {
	var apiErr *entity.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
