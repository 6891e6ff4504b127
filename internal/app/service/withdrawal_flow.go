package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"
	"wallet_client/internal/pkg/metrics"
	"wallet_client/internal/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FlowStep is the current state of a withdrawal.
type FlowStep int

const (
	StepSelectAsset FlowStep = iota
	StepSelectNetwork
	StepEnterAddressAndAmount
	StepConfirmAmount
	StepEnterPin
	StepSubmitting
	StepSuccess
	StepClosed
)

func (s FlowStep) String() string {
	switch s {
	case StepSelectAsset:
		return "select_asset"
	case StepSelectNetwork:
		return "select_network"
	case StepEnterAddressAndAmount:
		return "enter_address_and_amount"
	case StepConfirmAmount:
		return "confirm_amount"
	case StepEnterPin:
		return "enter_pin"
	case StepSubmitting:
		return "submitting"
	case StepSuccess:
		return "success"
	case StepClosed:
		return "closed"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

const withdrawalType = "withdrawal"

var (
	// ErrSubmitInFlight rejects a second submit while one is pending.
	ErrSubmitInFlight = errors.New("withdrawal submission already in progress")
	// ErrFlowClosed is returned by every operation after Close, and by a submit whose
	// flow was closed while the call was pending.
	ErrFlowClosed = errors.New("withdrawal flow is closed")

	pinPattern = regexp.MustCompile(`^[0-9]{4}$`)
	// digits with at most one dot; the input field never shows exponent forms
	plainAmountPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)
)

// WithdrawalFlowDeps are the collaborators of a withdrawal flow.
type WithdrawalFlowDeps struct {
	Catalog   port.CatalogReader
	Networks  port.NetworkProvider
	Addresses port.AddressValidator
	Wallet    port.WalletAPI
	Precision *PrecisionPolicy
	Logger    port.Logger
	Now       func() time.Time
}

// FlowView is a render snapshot of a flow. The PIN itself is never exposed.
type FlowView struct {
	ID              string                   `json:"id"`
	Step            string                   `json:"step"`
	Draft           entity.WithdrawalDraft   `json:"draft"`
	PinLength       int                      `json:"pinLength"`
	Assets          []entity.Asset           `json:"assets,omitempty"`
	Networks        []entity.Network         `json:"networks,omitempty"`
	NetworkBalance  string                   `json:"networkBalance,omitempty"`
	FeeAmount       string                   `json:"feeAmount,omitempty"`
	ReceiveAfterFee string                   `json:"receiveAfterFee,omitempty"`
	MaxDecimals     int                      `json:"maxDecimals,omitempty"`
	Error           string                   `json:"error,omitempty"`
	Submitting      bool                     `json:"submitting"`
	Result          *entity.WithdrawalResult `json:"result,omitempty"`
}

// WithdrawalFlow is the client-side withdrawal state machine. All methods are safe for
// concurrent use; wallet service calls run without holding the lock.
type WithdrawalFlow struct {
	id   string
	deps WithdrawalFlowDeps

	mu             sync.Mutex
	step           FlowStep
	draft          entity.WithdrawalDraft
	networkSkipped bool
	lastErr        error
	result         *entity.WithdrawalResult
	inFlight       bool
	cancelled      *atomic.Bool
}

// NewWithdrawalFlow starts a flow at SelectAsset.
func NewWithdrawalFlow(deps WithdrawalFlowDeps) *WithdrawalFlow {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Precision == nil {
		deps.Precision = NewPrecisionPolicy()
	}
	return &WithdrawalFlow{
		id:        uuid.NewString(),
		deps:      deps,
		step:      StepSelectAsset,
		draft:     entity.WithdrawalDraft{InputMode: entity.InputModeToken},
		cancelled: &atomic.Bool{},
	}
}

// ID identifies the flow.
func (f *WithdrawalFlow) ID() string { return f.id }

// Step returns the current state.
func (f *WithdrawalFlow) Step() FlowStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *WithdrawalFlow) requireStep(op string, allowed ...FlowStep) error {
	if f.step == StepClosed {
		return ErrFlowClosed
	}
	if f.step == StepSubmitting {
		return ErrSubmitInFlight
	}
	for _, s := range allowed {
		if f.step == s {
			return nil
		}
	}
	return entity.NewValidationError(fmt.Sprintf("%s is not available at step %s", op, f.step))
}

// SelectAsset picks the asset to withdraw. An asset with a single network skips SelectNetwork.
func (f *WithdrawalFlow) SelectAsset(symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("select asset", StepSelectAsset); err != nil {
		return err
	}

	asset, ok := f.deps.Catalog.Snapshot().AssetBySymbol(symbol)
	if !ok {
		return entity.NewValidationError(fmt.Sprintf("Unknown asset %q.", symbol))
	}
	nets := f.deps.Networks.NetworksForAsset(asset.Symbol)
	if len(nets) == 0 {
		return entity.NewValidationError(fmt.Sprintf("%s cannot be withdrawn yet.", asset.Symbol))
	}

	f.draft.Asset = &asset
	f.lastErr = nil
	if len(nets) == 1 {
		n := nets[0]
		f.draft.Network = &n
		f.networkSkipped = true
		f.step = StepEnterAddressAndAmount
		return nil
	}
	f.networkSkipped = false
	f.step = StepSelectNetwork
	return nil
}

// SelectNetwork picks one of the asset's networks.
func (f *WithdrawalFlow) SelectNetwork(networkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("select network", StepSelectNetwork); err != nil {
		return err
	}

	n, ok := f.deps.Networks.Network(f.draft.Asset.Symbol, networkID)
	if !ok {
		return entity.NewValidationError(fmt.Sprintf("%s is not available on %q.", f.draft.Asset.Symbol, networkID))
	}
	f.draft.Network = &n
	f.lastErr = nil
	f.step = StepEnterAddressAndAmount
	return nil
}

// SetRecipient stores the destination address as typed.
func (f *WithdrawalFlow) SetRecipient(address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("set recipient", StepEnterAddressAndAmount); err != nil {
		return err
	}
	f.draft.RecipientAddress = strings.TrimSpace(address)
	return nil
}

// SetNotes attaches an optional memo sent along with the withdrawal.
func (f *WithdrawalFlow) SetNotes(notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("set notes", StepEnterAddressAndAmount, StepConfirmAmount, StepEnterPin); err != nil {
		return err
	}
	f.draft.Notes = strings.TrimSpace(notes)
	return nil
}

// Continue leaves EnterAddressAndAmount once a network and a well-formed recipient are set.
func (f *WithdrawalFlow) Continue() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("continue", StepEnterAddressAndAmount); err != nil {
		return err
	}
	if f.draft.Network == nil {
		return entity.NewValidationError("Select a network first.")
	}
	if f.draft.RecipientAddress == "" {
		return entity.NewValidationError("Recipient address is required.")
	}
	if f.deps.Addresses != nil {
		if err := f.deps.Addresses.Validate(*f.draft.Network, f.draft.RecipientAddress); err != nil {
			return err
		}
	}
	f.lastErr = nil
	f.step = StepConfirmAmount
	return nil
}

// EditAmount sets the active amount field and recomputes the other one.
// Token input is truncated live to the network's decimal cap.
func (f *WithdrawalFlow) EditAmount(value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("edit amount", StepEnterAddressAndAmount, StepConfirmAmount); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if _, ok := parseAmountInput(value); !ok {
		return entity.NewValidationError("Amount must be a number.")
	}

	if f.draft.InputMode == entity.InputModeUSD {
		f.draft.AmountUSD = value
		f.deriveToken()
	} else {
		f.draft.AmountToken = f.deps.Precision.TruncateInput(value, f.networkID())
		f.deriveUSD()
	}
	return nil
}

// ToggleInputMode switches between token and USD entry. The token amount shown is the one
// that gets sent in either mode, so the toggle keeps it and re-derives the USD field from it
// at the current price. Re-deriving the token from cent-rounded USD would lose sub-cent amounts.
func (f *WithdrawalFlow) ToggleInputMode() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("toggle input mode", StepEnterAddressAndAmount, StepConfirmAmount); err != nil {
		return err
	}
	if f.draft.InputMode == entity.InputModeUSD {
		f.draft.InputMode = entity.InputModeToken
	} else {
		f.draft.InputMode = entity.InputModeUSD
	}
	f.deriveUSD()
	return nil
}

// UseMax fills the amount with the balance on the selected network.
func (f *WithdrawalFlow) UseMax() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("use max", StepEnterAddressAndAmount, StepConfirmAmount); err != nil {
		return err
	}
	if f.draft.Network == nil {
		return entity.NewValidationError("Select a network first.")
	}
	available := utils.TruncateDecimal(f.networkBalance(), f.deps.Precision.MaxDecimals(f.networkID()))
	f.draft.AmountToken = available.String()
	f.deriveUSD()
	return nil
}

// ConfirmAmount accepts a positive amount and moves to PIN entry.
func (f *WithdrawalFlow) ConfirmAmount() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep("confirm amount", StepConfirmAmount); err != nil {
		return err
	}
	amount, ok := parseAmountInput(f.draft.AmountToken)
	if !ok || amount.Sign() <= 0 {
		return entity.NewValidationError("Enter an amount greater than zero.")
	}
	f.lastErr = nil
	f.step = StepEnterPin
	return nil
}

// SubmitPin verifies the PIN, re-validates the amount and sends the withdrawal.
// Any failure returns to EnterPin with the PIN cleared and the error kept for View.
// If the flow is closed while a call is pending, the late result is dropped.
func (f *WithdrawalFlow) SubmitPin(ctx context.Context, pin string) (*entity.WithdrawalResult, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if err := f.requireStep("submit", StepEnterPin); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if !pinPattern.MatchString(pin) {
		f.mu.Unlock()
		return nil, entity.NewValidationError("PIN must be exactly 4 digits.")
	}
	f.inFlight = true
	f.lastErr = nil
	f.draft.PIN = pin
	f.step = StepSubmitting
	draft := f.draft
	cancelled := f.cancelled
	f.mu.Unlock()

	start := time.Now()
	result, err := f.submit(ctx, draft, cancelled)
	metrics.SubmitDuration.Observe(time.Since(start).Seconds())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if cancelled.Load() {
		f.deps.Logger.Info("Withdrawal result arrived after the flow was closed, dropping it", "flow_id", f.id)
		metrics.Withdrawals.WithLabelValues("abandoned").Inc()
		return nil, ErrFlowClosed
	}

	f.draft.PIN = ""
	if err != nil {
		f.lastErr = err
		f.step = StepEnterPin
		metrics.Withdrawals.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}
	f.result = result
	f.step = StepSuccess
	metrics.Withdrawals.WithLabelValues("success").Inc()
	f.deps.Logger.Info("Withdrawal accepted", "flow_id", f.id, "currency", result.Currency,
		"network", result.Network, "amount", result.Amount, "tx_hash", result.TxHash)
	return result, nil
}

func (f *WithdrawalFlow) submit(ctx context.Context, draft entity.WithdrawalDraft, cancelled *atomic.Bool) (*entity.WithdrawalResult, error) {
	verification, err := f.deps.Wallet.VerifyPin(ctx, draft.PIN)
	if err != nil {
		f.deps.Logger.Warn("PIN verification call failed", "flow_id", f.id, "error", err)
		return nil, &entity.FlowError{Class: entity.ErrAuth, Message: serverMessage(err), Cause: err}
	}
	if !verification.Success {
		msg := verification.Message
		if msg == "" {
			msg = "Incorrect PIN."
		}
		return nil, &entity.FlowError{Class: entity.ErrAuth, Message: msg}
	}
	if cancelled.Load() {
		return nil, ErrFlowClosed
	}

	asset := *draft.Asset
	network := *draft.Network
	snap := f.deps.Catalog.Snapshot()
	if current, ok := snap.AssetBySymbol(asset.Symbol); ok {
		asset = current
	}

	validated, err := f.deps.Precision.Validate(draft.AmountToken, network.ID, asset.Symbol, asset.NetworkBalance(network.ID))
	if err != nil {
		var amountErr *entity.AmountError
		msg := err.Error()
		if errors.As(err, &amountErr) {
			msg = amountErrorMessage(amountErr)
		}
		return nil, &entity.FlowError{Class: entity.ErrPrecision, Message: msg, Cause: err}
	}

	usdEquivalent := TokenToUSD(validated.Amount, asset.USDPrice).StringFixed(usdPlaces)
	req := entity.SendRequest{
		RecipientAddress: draft.RecipientAddress,
		Amount:           validated.Formatted,
		Currency:         asset.Symbol,
		CurrencyKey:      asset.Key,
		Network:          network.ID,
		NetworkName:      network.DisplayName,
		PIN:              draft.PIN,
		Type:             withdrawalType,
		USDEquivalent:    usdEquivalent,
		Notes:            draft.Notes,
	}

	receipt, err := f.deps.Wallet.SendToken(ctx, req)
	if err != nil {
		f.deps.Logger.Warn("Withdrawal rejected", "flow_id", f.id, "currency", asset.Symbol, "network", network.ID, "error", err)
		return nil, &entity.FlowError{Class: entity.ErrTransaction, Message: FriendlyTransactionMessage(serverMessage(err)), Cause: err}
	}

	fromAddress, _ := snap.Addresses.Lookup(asset.Key, network.ID)
	result := &entity.WithdrawalResult{
		Amount:        firstNonEmpty(receipt.Amount, validated.Formatted),
		Currency:      firstNonEmpty(receipt.Currency, asset.Symbol),
		Network:       firstNonEmpty(receipt.Network, network.DisplayName),
		ToAddress:     firstNonEmpty(receipt.ToAddress, draft.RecipientAddress),
		FromAddress:   firstNonEmpty(receipt.FromAddress, fromAddress),
		TxHash:        receipt.TxHash,
		ExplorerURL:   firstNonEmpty(receipt.ExplorerURL, network.ExplorerURL(receipt.TxHash)),
		USDEquivalent: firstNonEmpty(receipt.USDEquivalent, usdEquivalent),
		Timestamp:     f.deps.Now(),
	}
	if ts, ok := parseReceiptTime(receipt.Timestamp); ok {
		result.Timestamp = ts
	}
	result.ServerConfirmed = receipt.TxHash != ""
	return result, nil
}

// Back returns to the previous step and clears what the step being left owns.
func (f *WithdrawalFlow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.step {
	case StepClosed:
		return ErrFlowClosed
	case StepSubmitting:
		return ErrSubmitInFlight
	case StepSelectAsset:
		return entity.NewValidationError("Already at the first step.")
	case StepSuccess:
		return entity.NewValidationError("The withdrawal was sent; close the flow instead.")
	case StepSelectNetwork:
		f.draft.Asset = nil
		f.step = StepSelectAsset
	case StepEnterAddressAndAmount:
		f.draft.RecipientAddress = ""
		f.draft.Notes = ""
		f.clearAmounts()
		f.draft.Network = nil
		if f.networkSkipped {
			f.draft.Asset = nil
			f.networkSkipped = false
			f.step = StepSelectAsset
		} else {
			f.step = StepSelectNetwork
		}
	case StepConfirmAmount:
		f.clearAmounts()
		f.step = StepEnterAddressAndAmount
	case StepEnterPin:
		f.draft.PIN = ""
		f.step = StepConfirmAmount
	}
	f.lastErr = nil
	return nil
}

// Close discards the draft. A pending submit is not aborted server-side; its result is ignored.
func (f *WithdrawalFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled.Store(true)
	f.step = StepClosed
	f.draft = entity.WithdrawalDraft{}
	f.result = nil
	f.lastErr = nil
	f.networkSkipped = false
}

// Err returns the error shown at the current step, if any.
func (f *WithdrawalFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// View renders the current state.
func (f *WithdrawalFlow) View() FlowView {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := FlowView{
		ID:         f.id,
		Step:       f.step.String(),
		Draft:      f.draft,
		PinLength:  len(f.draft.PIN),
		Submitting: f.inFlight,
		Result:     f.result,
	}
	v.Draft.PIN = ""
	if f.lastErr != nil {
		v.Error = f.lastErr.Error()
	}

	switch f.step {
	case StepSelectAsset:
		v.Assets = f.deps.Catalog.Snapshot().Assets
	case StepSelectNetwork:
		v.Networks = f.deps.Networks.NetworksForAsset(f.draft.Asset.Symbol)
	}

	if n := f.draft.Network; n != nil {
		v.FeeAmount = n.FeeAmount.String()
		v.NetworkBalance = f.networkBalance().String()
		v.MaxDecimals = f.deps.Precision.MaxDecimals(n.ID)
		if amount, ok := parseAmountInput(f.draft.AmountToken); ok && f.draft.AmountToken != "" {
			received := amount.Sub(n.FeeAmount)
			if received.Sign() < 0 {
				received = decimal.Zero
			}
			v.ReceiveAfterFee = received.String()
		}
	}
	return v
}

func (f *WithdrawalFlow) networkID() string {
	if f.draft.Network == nil {
		return ""
	}
	return f.draft.Network.ID
}

// networkBalance reads the selected network's balance from the latest catalog.
func (f *WithdrawalFlow) networkBalance() decimal.Decimal {
	if f.draft.Asset == nil || f.draft.Network == nil {
		return decimal.Zero
	}
	if current, ok := f.deps.Catalog.Snapshot().AssetBySymbol(f.draft.Asset.Symbol); ok {
		return current.NetworkBalance(f.draft.Network.ID)
	}
	return f.draft.Asset.NetworkBalance(f.draft.Network.ID)
}

// price reads the selected asset's USD price from the latest catalog, like networkBalance.
func (f *WithdrawalFlow) price() decimal.Decimal {
	if f.draft.Asset == nil {
		return decimal.Zero
	}
	if current, ok := f.deps.Catalog.Snapshot().AssetBySymbol(f.draft.Asset.Symbol); ok {
		return current.USDPrice
	}
	return f.draft.Asset.USDPrice
}

func (f *WithdrawalFlow) deriveUSD() {
	token, ok := parseAmountInput(f.draft.AmountToken)
	if !ok || f.draft.AmountToken == "" {
		f.draft.AmountUSD = ""
		return
	}
	f.draft.AmountUSD = TokenToUSD(token, f.price()).StringFixed(usdPlaces)
}

func (f *WithdrawalFlow) deriveToken() {
	usd, ok := parseAmountInput(f.draft.AmountUSD)
	if !ok || f.draft.AmountUSD == "" {
		f.draft.AmountToken = ""
		return
	}
	token := USDToToken(usd, f.price())
	f.draft.AmountToken = utils.TruncateDecimal(token, f.deps.Precision.MaxDecimals(f.networkID())).String()
}

func (f *WithdrawalFlow) clearAmounts() {
	f.draft.AmountToken = ""
	f.draft.AmountUSD = ""
	f.draft.InputMode = entity.InputModeToken
}

// parseAmountInput accepts what a user may have typed so far: empty, digits, or digits
// with a trailing dot. Signs and exponent notation are rejected.
func parseAmountInput(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !plainAmountPattern.MatchString(s) {
		return decimal.Zero, false
	}
	d, ok := utils.ParseDecimalLoose(strings.TrimSuffix(s, "."))
	if !ok || d.Sign() < 0 {
		return decimal.Zero, false
	}
	return d, true
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, entity.ErrAuth):
		return "auth_failed"
	case errors.Is(err, entity.ErrPrecision):
		return "precision_failed"
	default:
		return "rejected"
	}
}

// parseReceiptTime reads an RFC 3339 timestamp or unix seconds / milliseconds.
func parseReceiptTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
