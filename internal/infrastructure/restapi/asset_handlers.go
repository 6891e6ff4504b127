package restapi

import (
	"context"
	"net/http"
	"strings"

	"wallet_client/internal/app/port"
	"wallet_client/internal/app/service"
	"wallet_client/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// Refresher triggers an on-demand balance refresh.
type Refresher interface {
	Refresh(ctx context.Context) service.RefreshOutcome
}

// NetworkInfo is one withdrawal network of an asset with its fee and deposit limits.
type NetworkInfo struct {
	entity.Network
	Balance      string               `json:"balance"`
	DepositLimit *entity.DepositLimit `json:"depositLimit,omitempty"`
}

// RefreshResponse reports how a refresh was served and the resulting catalog.
type RefreshResponse struct {
	Outcome  service.RefreshOutcome `json:"outcome"`
	Snapshot entity.CatalogSnapshot `json:"snapshot"`
}

// AssetHandler serves the asset catalog and deposit addresses.
type AssetHandler struct {
	catalog  port.CatalogReader
	networks port.NetworkProvider
	sync     Refresher
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(catalog port.CatalogReader, networks port.NetworkProvider, sync Refresher) *AssetHandler {
	return &AssetHandler{catalog: catalog, networks: networks, sync: sync}
}

// ListAssets returns the current catalog snapshot.
func (h *AssetHandler) ListAssets(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Snapshot())
}

// Refresh asks for fresh balances and returns the catalog once the refresh settles.
func (h *AssetHandler) Refresh(c *gin.Context) {
	outcome := h.sync.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, RefreshResponse{Outcome: outcome, Snapshot: h.catalog.Snapshot()})
}

// ListNetworks returns the asset's networks in display order with the balance held on
// each and its deposit limits.
func (h *AssetHandler) ListNetworks(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	nets := h.networks.NetworksForAsset(symbol)
	if len(nets) == 0 {
		writeError(c, entity.NewValidationError("unknown asset "+symbol), nil)
		return
	}

	asset, _ := h.catalog.Snapshot().AssetBySymbol(symbol)
	out := make([]NetworkInfo, 0, len(nets))
	for _, n := range nets {
		info := NetworkInfo{Network: n, Balance: asset.NetworkBalance(n.ID).String()}
		if limit, ok := h.networks.DepositLimit(symbol, n.ID); ok {
			info.DepositLimit = &limit
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "networks": out})
}

// ListAddresses returns the wallet's deposit addresses keyed by currency and network.
func (h *AssetHandler) ListAddresses(c *gin.Context) {
	addresses := h.catalog.Snapshot().Addresses
	if addresses == nil {
		addresses = entity.WalletAddresses{}
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}
