package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet_client/internal/domain/entity"
	"wallet_client/internal/infrastructure/network/addressvalidator"
	"wallet_client/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tronRecipient = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	evmRecipient  = "0x52908400098527886E0F7030069857D2E4169EE7"
	btcRecipient  = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestFlow(t *testing.T, wallet *fakeWallet) (*WithdrawalFlow, *CatalogStore) {
	t.Helper()
	store := newTestStore()
	_, err := store.Replace([]byte(nestedFixture), entity.WalletAddresses{
		"usdt": {"tron": "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf"},
	})
	require.NoError(t, err)

	flow := NewWithdrawalFlow(WithdrawalFlowDeps{
		Catalog:   store,
		Networks:  newTestNetworks(),
		Addresses: addressvalidator.New(),
		Wallet:    wallet,
		Logger:    logger.NewNop(),
		Now:       func() time.Time { return fixedNow },
	})
	return flow, store
}

// toPin drives a USDT-on-tron withdrawal of amount up to EnterPin.
func toPin(t *testing.T, f *WithdrawalFlow, amount string) {
	t.Helper()
	require.NoError(t, f.SelectAsset("USDT"))
	require.NoError(t, f.SelectNetwork("tron"))
	require.NoError(t, f.SetRecipient(tronRecipient))
	require.NoError(t, f.Continue())
	require.NoError(t, f.EditAmount(amount))
	require.NoError(t, f.ConfirmAmount())
	require.Equal(t, StepEnterPin, f.Step())
}

func TestSingleNetworkAssetSkipsNetworkSelection(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})

	require.NoError(t, f.SelectAsset("btc"))
	assert.Equal(t, StepEnterAddressAndAmount, f.Step())
	assert.Equal(t, "bitcoin", f.View().Draft.Network.ID)

	require.NoError(t, f.Back())
	assert.Equal(t, StepSelectAsset, f.Step(), "back skips the auto-selected network step")
	assert.Nil(t, f.View().Draft.Asset)
}

func TestMultiNetworkAssetListsNetworks(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})

	require.NoError(t, f.SelectAsset("USDT"))
	assert.Equal(t, StepSelectNetwork, f.Step())
	assert.Len(t, f.View().Networks, 4)

	err := f.SelectNetwork("avalanche")
	assert.True(t, errors.Is(err, entity.ErrValidation))

	require.NoError(t, f.SelectNetwork("tron"))
	require.NoError(t, f.Back())
	assert.Equal(t, StepSelectNetwork, f.Step())
	assert.Nil(t, f.View().Draft.Network)
}

func TestSelectUnknownAsset(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	assert.True(t, errors.Is(f.SelectAsset("NOPE"), entity.ErrValidation))
	assert.Equal(t, StepSelectAsset, f.Step())
}

func TestContinueRequiresValidRecipient(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("USDT"))
	require.NoError(t, f.SelectNetwork("ethereum"))

	assert.True(t, errors.Is(f.Continue(), entity.ErrValidation))

	require.NoError(t, f.SetRecipient(btcRecipient))
	assert.True(t, errors.Is(f.Continue(), entity.ErrValidation))

	require.NoError(t, f.SetRecipient(evmRecipient))
	require.NoError(t, f.Continue())
	assert.Equal(t, StepConfirmAmount, f.Step())
}

func TestFeeEstimateIsDisplayOnly(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("USDT"))
	require.NoError(t, f.SelectNetwork("tron"))

	require.NoError(t, f.EditAmount("500"))
	v := f.View()
	assert.Equal(t, "1", v.FeeAmount)
	assert.Equal(t, "499", v.ReceiveAfterFee)

	require.NoError(t, f.EditAmount("0.5"))
	assert.Equal(t, "0", f.View().ReceiveAfterFee)
}

func TestEditAmountTruncatesLiveAndDerivesUSD(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("USDT"))
	require.NoError(t, f.SelectNetwork("tron"))

	require.NoError(t, f.EditAmount("10.123456789"))
	d := f.View().Draft
	assert.Equal(t, "10.123456", d.AmountToken)
	assert.Equal(t, "10.13", d.AmountUSD)

	assert.True(t, errors.Is(f.EditAmount("ten"), entity.ErrValidation))
	assert.Equal(t, "10.123456", f.View().Draft.AmountToken)

	for _, exp := range []string{"1.5e-10", "12345678e-13", "1E2", "-1", "+1"} {
		assert.True(t, errors.Is(f.EditAmount(exp), entity.ErrValidation), exp)
		assert.Equal(t, "10.123456", f.View().Draft.AmountToken, exp)
	}

	require.NoError(t, f.EditAmount("0.000001234"))
	assert.Equal(t, "0.000001", f.View().Draft.AmountToken)
	require.NoError(t, f.EditAmount("7."))
	assert.Equal(t, "7.", f.View().Draft.AmountToken)
}

func TestToggleInputModeRederivesFromDisplayedValue(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("BTC"))

	require.NoError(t, f.EditAmount("0.1"))
	assert.Equal(t, "6000.00", f.View().Draft.AmountUSD)

	require.NoError(t, f.ToggleInputMode())
	d := f.View().Draft
	assert.Equal(t, entity.InputModeUSD, d.InputMode)
	assert.Equal(t, "0.1", d.AmountToken)

	require.NoError(t, f.EditAmount("3000"))
	assert.Equal(t, "0.05", f.View().Draft.AmountToken)

	require.NoError(t, f.ToggleInputMode())
	d = f.View().Draft
	assert.Equal(t, entity.InputModeToken, d.InputMode)
	assert.Equal(t, "3000.00", d.AmountUSD)
}

func TestToggleInputModeKeepsSubCentTokenAmount(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("BTC"))

	require.NoError(t, f.EditAmount("0.00000001"))
	for i := 0; i < 2; i++ {
		require.NoError(t, f.ToggleInputMode())
		d := f.View().Draft
		assert.Equal(t, "0.00000001", d.AmountToken)
		assert.Equal(t, "0.00", d.AmountUSD)
	}
	assert.Equal(t, entity.InputModeToken, f.View().Draft.InputMode)
}

func TestUSDValueFollowsLatestPrice(t *testing.T) {
	wallet := &fakeWallet{verify: entity.PinVerification{Success: true}, receipt: entity.SendReceipt{TxHash: "0xabc"}}
	f, store := newTestFlow(t, wallet)
	require.NoError(t, f.SelectAsset("BTC"))
	require.NoError(t, f.SetRecipient(btcRecipient))
	require.NoError(t, f.Continue())
	require.NoError(t, f.EditAmount("0.1"))
	assert.Equal(t, "6000.00", f.View().Draft.AmountUSD)

	_, err := store.Replace([]byte(`{"currencies":{"btc":{"networks":{"bitcoin":{"balance":"0.5","priceUSD":"50000"}}}}}`), nil)
	require.NoError(t, err)

	require.NoError(t, f.EditAmount("0.1"))
	assert.Equal(t, "5000.00", f.View().Draft.AmountUSD)

	require.NoError(t, f.ConfirmAmount())
	_, err = f.SubmitPin(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, "5000.00", wallet.lastSend.USDEquivalent)
}

func TestUseMaxTakesSelectedNetworkBalance(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("ETH"))
	require.NoError(t, f.SelectNetwork("base"))
	require.NoError(t, f.SetRecipient(evmRecipient))
	require.NoError(t, f.Continue())

	require.NoError(t, f.UseMax())
	d := f.View().Draft
	assert.Equal(t, "0.25", d.AmountToken, "network balance, not the 1.25 aggregate")
	assert.Equal(t, "750.00", d.AmountUSD)
}

func TestConfirmAmountRequiresPositive(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("BTC"))
	require.NoError(t, f.SetRecipient(btcRecipient))
	require.NoError(t, f.Continue())

	assert.True(t, errors.Is(f.ConfirmAmount(), entity.ErrValidation))
	require.NoError(t, f.EditAmount("0"))
	assert.True(t, errors.Is(f.ConfirmAmount(), entity.ErrValidation))
	assert.Equal(t, StepConfirmAmount, f.Step())
}

func TestSubmitRejectsMalformedPinLocally(t *testing.T) {
	wallet := &fakeWallet{verify: entity.PinVerification{Success: true}}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10")

	for _, pin := range []string{"", "123", "12345", "12a4"} {
		_, err := f.SubmitPin(context.Background(), pin)
		assert.True(t, errors.Is(err, entity.ErrValidation), pin)
	}
	assert.Equal(t, 0, wallet.verifyCalls)
	assert.Equal(t, StepEnterPin, f.Step())
}

func TestSubmitWithRejectedPin(t *testing.T) {
	wallet := &fakeWallet{verify: entity.PinVerification{Success: false, Message: "Invalid PIN"}}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10")

	_, err := f.SubmitPin(context.Background(), "1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrAuth))

	v := f.View()
	assert.Equal(t, "enter_pin", v.Step)
	assert.Equal(t, 0, v.PinLength)
	assert.Equal(t, "Invalid PIN", v.Error)
	assert.Equal(t, 0, wallet.sendCalls)
}

func TestSubmitFailsClosedWhenVerificationErrors(t *testing.T) {
	wallet := &fakeWallet{verifyErr: &entity.APIError{StatusCode: 503, Message: "PIN service unavailable"}}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10")

	_, err := f.SubmitPin(context.Background(), "1234")
	assert.True(t, errors.Is(err, entity.ErrAuth))
	assert.Equal(t, "PIN service unavailable", f.View().Error)
	assert.Equal(t, 0, wallet.sendCalls)
}

func TestSubmitRevalidatesAgainstNetworkBalance(t *testing.T) {
	wallet := &fakeWallet{verify: entity.PinVerification{Success: true}}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "101")

	_, err := f.SubmitPin(context.Background(), "1234")
	assert.True(t, errors.Is(err, entity.ErrPrecision))
	assert.Equal(t, "Insufficient balance for this withdrawal.", f.View().Error)
	assert.Equal(t, StepEnterPin, f.Step())
	assert.Equal(t, 0, wallet.sendCalls)
}

func TestSubmitSuccessBuildsReceiptWithFallbacks(t *testing.T) {
	wallet := &fakeWallet{
		verify:  entity.PinVerification{Success: true},
		receipt: entity.SendReceipt{TxHash: "abc123"},
	}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10.5")
	require.NoError(t, f.SetNotes("rent"))

	res, err := f.SubmitPin(context.Background(), "4321")
	require.NoError(t, err)

	req := wallet.lastSend
	assert.Equal(t, tronRecipient, req.RecipientAddress)
	assert.Equal(t, "10.5", req.Amount)
	assert.Equal(t, "USDT", req.Currency)
	assert.Equal(t, "usdt", req.CurrencyKey)
	assert.Equal(t, "tron", req.Network)
	assert.Equal(t, "Tron (TRC20)", req.NetworkName)
	assert.Equal(t, "4321", req.PIN)
	assert.Equal(t, "withdrawal", req.Type)
	assert.Equal(t, "10.50", req.USDEquivalent)
	assert.Equal(t, "rent", req.Notes)

	assert.Equal(t, "10.5", res.Amount)
	assert.Equal(t, "Tron (TRC20)", res.Network)
	assert.Equal(t, "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf", res.FromAddress)
	assert.Equal(t, "https://tronscan.org/#/transaction/abc123", res.ExplorerURL)
	assert.Equal(t, fixedNow, res.Timestamp)
	assert.True(t, res.ServerConfirmed)

	v := f.View()
	assert.Equal(t, "success", v.Step)
	assert.Equal(t, 0, v.PinLength)
	assert.Equal(t, res, v.Result)
	assert.Error(t, f.Back())
}

func TestSubmitPrefersServerReceiptFields(t *testing.T) {
	wallet := &fakeWallet{
		verify: entity.PinVerification{Success: true},
		receipt: entity.SendReceipt{
			Amount: "10.000000", Network: "TRON", ExplorerURL: "https://example.test/tx/1",
			Timestamp: "2026-03-04T05:06:07Z",
		},
	}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10")

	res, err := f.SubmitPin(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, "10.000000", res.Amount)
	assert.Equal(t, "TRON", res.Network)
	assert.Equal(t, "https://example.test/tx/1", res.ExplorerURL)
	assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), res.Timestamp)
	assert.False(t, res.ServerConfirmed)
}

func TestSubmitFailureMapsServerMessage(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"Too many decimals for network", "Amount has more decimal places than this network supports."},
		{"amount underflow", "Amount is too small to be sent on this network."},
		{"INSUFFICIENT funds", "Insufficient balance for this withdrawal."},
		{"invalid address format", "The recipient address is not valid for the selected network."},
		{"hot wallet paused", "hot wallet paused"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			wallet := &fakeWallet{
				verify:  entity.PinVerification{Success: true},
				sendErr: &entity.APIError{StatusCode: 400, Message: tt.server},
			}
			f, _ := newTestFlow(t, wallet)
			toPin(t, f, "10")

			_, err := f.SubmitPin(context.Background(), "1234")
			assert.True(t, errors.Is(err, entity.ErrTransaction))
			v := f.View()
			assert.Equal(t, "enter_pin", v.Step)
			assert.Equal(t, tt.want, v.Error)
			assert.Equal(t, 0, v.PinLength)
		})
	}
}

func TestBackFromPinClearsPinAndError(t *testing.T) {
	wallet := &fakeWallet{verify: entity.PinVerification{Success: false, Message: "nope"}}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10")
	_, _ = f.SubmitPin(context.Background(), "1234")
	require.NotEmpty(t, f.View().Error)

	require.NoError(t, f.Back())
	v := f.View()
	assert.Equal(t, "confirm_amount", v.Step)
	assert.Empty(t, v.Error)
	assert.Equal(t, "10", v.Draft.AmountToken)

	require.NoError(t, f.Back())
	v = f.View()
	assert.Equal(t, "enter_address_and_amount", v.Step)
	assert.Empty(t, v.Draft.AmountToken)
	assert.Equal(t, tronRecipient, v.Draft.RecipientAddress)
}

func TestBackFromFirstStep(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	assert.True(t, errors.Is(f.Back(), entity.ErrValidation))
}

func TestDuplicateSubmitBlocked(t *testing.T) {
	wallet := &fakeWallet{
		verify:  entity.PinVerification{Success: true},
		receipt: entity.SendReceipt{TxHash: "h"},
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10")

	done := make(chan error, 1)
	go func() {
		_, err := f.SubmitPin(context.Background(), "1234")
		done <- err
	}()
	<-wallet.entered

	_, err := f.SubmitPin(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.True(t, f.View().Submitting)
	assert.ErrorIs(t, f.Back(), ErrSubmitInFlight)

	close(wallet.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, wallet.sendCalls)
	assert.Equal(t, StepSuccess, f.Step())
}

func TestCloseDuringSubmitDropsLateResult(t *testing.T) {
	wallet := &fakeWallet{
		verify:  entity.PinVerification{Success: true},
		receipt: entity.SendReceipt{TxHash: "late"},
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	f, _ := newTestFlow(t, wallet)
	toPin(t, f, "10")

	done := make(chan error, 1)
	go func() {
		_, err := f.SubmitPin(context.Background(), "1234")
		done <- err
	}()
	<-wallet.entered

	f.Close()
	close(wallet.gate)

	assert.ErrorIs(t, <-done, ErrFlowClosed)
	v := f.View()
	assert.Equal(t, "closed", v.Step)
	assert.Nil(t, v.Result)
	assert.Nil(t, v.Draft.Asset)
	assert.ErrorIs(t, f.SelectAsset("USDT"), ErrFlowClosed)
}

func TestCloseDiscardsDraft(t *testing.T) {
	f, _ := newTestFlow(t, &fakeWallet{})
	require.NoError(t, f.SelectAsset("USDT"))
	require.NoError(t, f.SelectNetwork("tron"))
	require.NoError(t, f.SetRecipient(tronRecipient))

	f.Close()
	v := f.View()
	assert.Equal(t, "closed", v.Step)
	assert.Empty(t, v.Draft.RecipientAddress)
	assert.Nil(t, v.Draft.Network)
}

func TestParseReceiptTime(t *testing.T) {
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2026-01-01T00:00:00Z", "1767225600", "1767225600000"} {
		ts, ok := parseReceiptTime(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(ts), in)
	}
	_, ok := parseReceiptTime("yesterday")
	assert.False(t, ok)
	_, ok = parseReceiptTime("")
	assert.False(t, ok)
}
