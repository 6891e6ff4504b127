package restapi

import (
	"net/http"

	"wallet_client/internal/app/port"
	"wallet_client/internal/app/service"
	"wallet_client/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// SessionStore holds the active withdrawal flow.
type SessionStore interface {
	Start(flow *service.WithdrawalFlow)
	Get(id string) (*service.WithdrawalFlow, error)
	Delete(id string) error
}

type assetBody struct {
	Symbol string `json:"symbol"`
}

type networkBody struct {
	NetworkID string `json:"networkId"`
}

type recipientBody struct {
	Address string  `json:"address"`
	Notes   *string `json:"notes"`
}

type amountBody struct {
	Value string `json:"value"`
}

// WithdrawalHandler drives withdrawal flows over HTTP. Every answer carries the flow view.
type WithdrawalHandler struct {
	sessions SessionStore
	newFlow  func() *service.WithdrawalFlow
	logger   port.Logger
}

// NewWithdrawalHandler creates a handler; newFlow builds a fresh flow per session.
func NewWithdrawalHandler(sessions SessionStore, newFlow func() *service.WithdrawalFlow, logger port.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{sessions: sessions, newFlow: newFlow, logger: logger}
}

// Start opens a new session, closing any previous one.
func (h *WithdrawalHandler) Start(c *gin.Context) {
	flow := h.newFlow()
	h.sessions.Start(flow)
	h.logger.Info("Withdrawal session started", "flow_id", flow.ID())
	c.JSON(http.StatusCreated, flow.View())
}

// Get renders the session.
func (h *WithdrawalHandler) Get(c *gin.Context) {
	flow, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, flow.View())
}

// Close discards the session.
func (h *WithdrawalHandler) Close(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		writeError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WithdrawalHandler) SelectAsset(c *gin.Context) {
	var body assetBody
	if !bind(c, &body) {
		return
	}
	h.apply(c, func(f *service.WithdrawalFlow) error { return f.SelectAsset(body.Symbol) })
}

func (h *WithdrawalHandler) SelectNetwork(c *gin.Context) {
	var body networkBody
	if !bind(c, &body) {
		return
	}
	h.apply(c, func(f *service.WithdrawalFlow) error { return f.SelectNetwork(body.NetworkID) })
}

// SetRecipient stores the address and, when present, the notes.
func (h *WithdrawalHandler) SetRecipient(c *gin.Context) {
	var body recipientBody
	if !bind(c, &body) {
		return
	}
	h.apply(c, func(f *service.WithdrawalFlow) error {
		if err := f.SetRecipient(body.Address); err != nil {
			return err
		}
		if body.Notes != nil {
			return f.SetNotes(*body.Notes)
		}
		return nil
	})
}

func (h *WithdrawalHandler) Continue(c *gin.Context) {
	h.apply(c, (*service.WithdrawalFlow).Continue)
}

func (h *WithdrawalHandler) EditAmount(c *gin.Context) {
	var body amountBody
	if !bind(c, &body) {
		return
	}
	h.apply(c, func(f *service.WithdrawalFlow) error { return f.EditAmount(body.Value) })
}

func (h *WithdrawalHandler) ToggleMode(c *gin.Context) {
	h.apply(c, (*service.WithdrawalFlow).ToggleInputMode)
}

func (h *WithdrawalHandler) UseMax(c *gin.Context) {
	h.apply(c, (*service.WithdrawalFlow).UseMax)
}

func (h *WithdrawalHandler) ConfirmAmount(c *gin.Context) {
	h.apply(c, (*service.WithdrawalFlow).ConfirmAmount)
}

func (h *WithdrawalHandler) Back(c *gin.Context) {
	h.apply(c, (*service.WithdrawalFlow).Back)
}

// SubmitPin verifies the PIN and sends the withdrawal. The request blocks until the
// wallet service answers.
func (h *WithdrawalHandler) SubmitPin(c *gin.Context) {
	var body pinBody
	if !bind(c, &body) {
		return
	}
	h.apply(c, func(f *service.WithdrawalFlow) error {
		_, err := f.SubmitPin(c.Request.Context(), body.Pin)
		return err
	})
}

func (h *WithdrawalHandler) lookup(c *gin.Context) (*service.WithdrawalFlow, bool) {
	flow, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return nil, false
	}
	return flow, true
}

func (h *WithdrawalHandler) apply(c *gin.Context, op func(*service.WithdrawalFlow) error) {
	flow, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := op(flow); err != nil {
		view := flow.View()
		h.logger.Debug("Withdrawal step rejected", "flow_id", flow.ID(), "step", view.Step, "error", err)
		writeError(c, err, &view)
		return
	}
	c.JSON(http.StatusOK, flow.View())
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, entity.NewValidationError("Malformed request body."), nil)
		return false
	}
	return true
}
