package restapi

import (
	"errors"
	"net/http"

	"wallet_client/internal/app/service"
	"wallet_client/internal/domain/entity"
	"wallet_client/internal/infrastructure/sessionstore"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string            `json:"error"`
	Class string            `json:"class"`
	View  *service.FlowView `json:"view,omitempty"`
}

// classify maps an error onto an HTTP status and a stable class name.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sessionstore.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrFlowClosed):
		return http.StatusGone, "closed"
	case errors.Is(err, service.ErrSubmitInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, entity.ErrAuth):
		return http.StatusUnauthorized, "auth"
	case errors.Is(err, entity.ErrPrecision):
		return http.StatusUnprocessableEntity, "precision"
	case errors.Is(err, entity.ErrTransaction):
		return http.StatusUnprocessableEntity, "transaction"
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, entity.ErrNetwork):
		return http.StatusBadGateway, "network"
	default:
		var apiErr *entity.APIError
		if errors.As(err, &apiErr) {
			return http.StatusBadGateway, "wallet_api"
		}
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error, view *service.FlowView) {
	status, class := classify(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Class: class, View: view})
}
