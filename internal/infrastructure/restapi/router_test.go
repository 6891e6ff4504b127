package restapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wallet_client/internal/app/service"
	"wallet_client/internal/domain/entity"
	"wallet_client/internal/infrastructure/network/addressvalidator"
	networkdefinition "wallet_client/internal/infrastructure/network/definition"
	"wallet_client/internal/infrastructure/sessionstore"
	"wallet_client/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const balancesFixture = `{"currencies": {
  "usdt": {"networks": {
    "tron":     {"balance": "100.5", "priceUSD": "1", "valueUSD": "100.5"},
    "ethereum": {"balance": "20", "priceUSD": "1", "valueUSD": "20"}
  }},
  "btc": {"networks": {"bitcoin": {"balance": "0.5", "priceUSD": "60000", "valueUSD": "30000"}}}
}}`

type stubWallet struct {
	mu         sync.Mutex
	hasPin     bool
	createdPin string
	verify     entity.PinVerification
	receipt    entity.SendReceipt
	sends      int
}

func (w *stubWallet) HasPin(context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasPin, nil
}

func (w *stubWallet) CreatePin(_ context.Context, pin string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.createdPin = pin
	w.hasPin = true
	return nil
}

func (w *stubWallet) VerifyPin(context.Context, string) (entity.PinVerification, error) {
	return w.verify, nil
}

func (w *stubWallet) FetchWallet(context.Context) (entity.WalletState, error) {
	return entity.WalletState{}, nil
}

func (w *stubWallet) SendToken(context.Context, entity.SendRequest) (entity.SendReceipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sends++
	return w.receipt, nil
}

type stubRefresher struct{ calls int }

func (r *stubRefresher) Refresh(context.Context) service.RefreshOutcome {
	r.calls++
	return service.RefreshREST
}

type testEnv struct {
	router    *gin.Engine
	wallet    *stubWallet
	refresher *stubRefresher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	networks := networkdefinition.NewNetworkDefinitionProvider(log)
	store := service.NewCatalogStore(service.NewAssetCatalog(networks), log)
	_, err := store.Replace([]byte(balancesFixture), entity.WalletAddresses{
		"usdt": {"tron": "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf"},
	})
	require.NoError(t, err)

	wallet := &stubWallet{
		verify:  entity.PinVerification{Success: true},
		receipt: entity.SendReceipt{TxHash: "abc123"},
	}
	refresher := &stubRefresher{}
	sessions := sessionstore.New(time.Minute, time.Minute, log)
	newFlow := func() *service.WithdrawalFlow {
		return service.NewWithdrawalFlow(service.WithdrawalFlowDeps{
			Catalog:   store,
			Networks:  networks,
			Addresses: addressvalidator.New(),
			Wallet:    wallet,
			Logger:    log,
		})
	}

	router := SetupRouter(
		RouterOptions{MetricsPath: "/metrics"},
		NewAssetHandler(store, networks, refresher),
		NewPinHandler(wallet, log),
		NewWithdrawalHandler(sessions, newFlow, log),
	)
	return &testEnv{router: router, wallet: wallet, refresher: refresher}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListAssetsInPriorityOrder(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/assets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decode[entity.CatalogSnapshot](t, rec)
	require.Len(t, snap.Assets, 2)
	assert.Equal(t, "BTC", snap.Assets[0].Symbol)
	assert.Equal(t, "USDT", snap.Assets[1].Symbol)
	assert.False(t, snap.Placeholder)
}

func TestRefreshReportsOutcome(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/assets/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[RefreshResponse](t, rec)
	assert.Equal(t, service.RefreshREST, resp.Outcome)
	assert.Equal(t, 1, env.refresher.calls)
}

func TestListNetworks(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/assets/usdt/networks", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Symbol   string        `json:"symbol"`
		Networks []NetworkInfo `json:"networks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "USDT", resp.Symbol)
	require.NotEmpty(t, resp.Networks)
	assert.Equal(t, "tron", resp.Networks[0].ID)
	assert.Equal(t, "100.5", resp.Networks[0].Balance)
	assert.Equal(t, "1", resp.Networks[0].FeeAmount.String())
	require.NotNil(t, resp.Networks[0].DepositLimit)
	assert.Equal(t, "10", resp.Networks[0].DepositLimit.Min.String())
	assert.Equal(t, "tron", resp.Networks[0].DepositLimit.NetworkID)
}

func TestListNetworksUnknownAsset(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/assets/shib/networks", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAddresses(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/addresses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf")
}

func TestPinStatusAndCreate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/pin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hasPin":false}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/pin", pinBody{Pin: "12a4"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/pin", pinBody{Pin: "1234"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1234", env.wallet.createdPin)
}

func TestWithdrawalHappyPath(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/withdrawals", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[service.FlowView](t, rec)
	assert.Equal(t, "select_asset", view.Step)
	base := "/api/v1/withdrawals/" + view.ID

	steps := []struct {
		path string
		body any
		step string
	}{
		{"/asset", assetBody{Symbol: "USDT"}, "select_network"},
		{"/network", networkBody{NetworkID: "tron"}, "enter_address_and_amount"},
		{"/recipient", map[string]string{"address": "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", "notes": "rent"}, "enter_address_and_amount"},
		{"/continue", nil, "confirm_amount"},
		{"/amount", amountBody{Value: "12.3456789"}, "confirm_amount"},
		{"/confirm", nil, "enter_pin"},
		{"/pin", pinBody{Pin: "1234"}, "success"},
	}
	for _, s := range steps {
		rec = env.do(t, http.MethodPost, base+s.path, s.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", s.path, rec.Body.String())
		view = decode[service.FlowView](t, rec)
		require.Equal(t, s.step, view.Step, s.path)
	}

	require.NotNil(t, view.Result)
	assert.Equal(t, "12.345678", view.Result.Amount)
	assert.Equal(t, "abc123", view.Result.TxHash)
	assert.Equal(t, 1, env.wallet.sends)
	assert.NotContains(t, rec.Body.String(), "1234\"")
}

func TestWithdrawalStepErrors(t *testing.T) {
	env := newTestEnv(t)
	view := decode[service.FlowView](t, env.do(t, http.MethodPost, "/api/v1/withdrawals", nil))
	base := "/api/v1/withdrawals/" + view.ID

	rec := env.do(t, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation", errResp.Class)
	require.NotNil(t, errResp.View)
	assert.Equal(t, "select_asset", errResp.View.Step)

	rec = env.do(t, http.MethodPost, base+"/asset", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawalInvalidRecipientRejectedOnContinue(t *testing.T) {
	env := newTestEnv(t)
	view := decode[service.FlowView](t, env.do(t, http.MethodPost, "/api/v1/withdrawals", nil))
	base := "/api/v1/withdrawals/" + view.ID

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/asset", assetBody{Symbol: "BTC"}).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/recipient", recipientBody{Address: "0x1234"}).Code)

	rec := env.do(t, http.MethodPost, base+"/continue", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewSessionReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)
	first := decode[service.FlowView](t, env.do(t, http.MethodPost, "/api/v1/withdrawals", nil))
	second := decode[service.FlowView](t, env.do(t, http.MethodPost, "/api/v1/withdrawals", nil))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/withdrawals/"+first.ID, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/withdrawals/"+second.ID, nil).Code)
}

func TestCloseSession(t *testing.T) {
	env := newTestEnv(t)
	view := decode[service.FlowView](t, env.do(t, http.MethodPost, "/api/v1/withdrawals", nil))
	path := "/api/v1/withdrawals/" + view.ID

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, path, nil).Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{sessionstore.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrFlowClosed, http.StatusGone},
		{service.ErrSubmitInFlight, http.StatusConflict},
		{&entity.FlowError{Class: entity.ErrAuth, Message: "Incorrect PIN."}, http.StatusUnauthorized},
		{&entity.AmountError{Reason: entity.AmountInsufficient}, http.StatusUnprocessableEntity},
		{&entity.FlowError{Class: entity.ErrTransaction, Message: "x"}, http.StatusUnprocessableEntity},
		{entity.NewValidationError("x"), http.StatusBadRequest},
		{&entity.APIError{StatusCode: 500}, http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
