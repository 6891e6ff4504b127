package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures the outer middleware of the local API.
type RouterOptions struct {
	AllowOrigins []string // empty allows all origins
	MetricsPath  string   // empty disables /metrics
}

// SetupRouter wires every handler under /api/v1 plus health and metrics endpoints.
func SetupRouter(opts RouterOptions, assets *AssetHandler, pins *PinHandler, withdrawals *WithdrawalHandler) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.MetricsPath != "" {
		router.GET(opts.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/assets", assets.ListAssets)
		v1.POST("/assets/refresh", assets.Refresh)
		v1.GET("/assets/:symbol/networks", assets.ListNetworks)
		v1.GET("/addresses", assets.ListAddresses)

		v1.GET("/pin", pins.Status)
		v1.POST("/pin", pins.Create)

		w := v1.Group("/withdrawals")
		w.POST("", withdrawals.Start)
		w.GET("/:id", withdrawals.Get)
		w.DELETE("/:id", withdrawals.Close)
		w.POST("/:id/asset", withdrawals.SelectAsset)
		w.POST("/:id/network", withdrawals.SelectNetwork)
		w.POST("/:id/recipient", withdrawals.SetRecipient)
		w.POST("/:id/continue", withdrawals.Continue)
		w.POST("/:id/amount", withdrawals.EditAmount)
		w.POST("/:id/mode", withdrawals.ToggleMode)
		w.POST("/:id/max", withdrawals.UseMax)
		w.POST("/:id/confirm", withdrawals.ConfirmAmount)
		w.POST("/:id/pin", withdrawals.SubmitPin)
		w.POST("/:id/back", withdrawals.Back)
	}

	return router
}
