package restapi

import (
	"net/http"
	"regexp"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

var newPinPattern = regexp.MustCompile(`^[0-9]{4}$`)

type pinBody struct {
	Pin string `json:"pin"`
}

// PinHandler exposes PIN status and creation.
type PinHandler struct {
	wallet port.WalletAPI
	logger port.Logger
}

// NewPinHandler creates a new PinHandler.
func NewPinHandler(wallet port.WalletAPI, logger port.Logger) *PinHandler {
	return &PinHandler{wallet: wallet, logger: logger}
}

// Status reports whether a transaction PIN is set.
func (h *PinHandler) Status(c *gin.Context) {
	hasPin, err := h.wallet.HasPin(c.Request.Context())
	if err != nil {
		h.logger.Warn("PIN status check failed", "error", err)
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasPin": hasPin})
}

// Create sets the transaction PIN.
func (h *PinHandler) Create(c *gin.Context) {
	var body pinBody
	if err := c.ShouldBindJSON(&body); err != nil || !newPinPattern.MatchString(body.Pin) {
		writeError(c, entity.NewValidationError("PIN must be exactly 4 digits."), nil)
		return
	}
	if err := h.wallet.CreatePin(c.Request.Context(), body.Pin); err != nil {
		h.logger.Warn("PIN creation failed", "error", err)
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"hasPin": true})
}
