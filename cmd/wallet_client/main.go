package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_client/internal/app/provider"
	"wallet_client/internal/app/service"
	"wallet_client/internal/infrastructure/configloader"
	"wallet_client/internal/infrastructure/httpclient"
	"wallet_client/internal/infrastructure/network/addressvalidator"
	"wallet_client/internal/infrastructure/pushclient"
	"wallet_client/internal/infrastructure/restapi"
	"wallet_client/internal/infrastructure/sessionstore"
	"wallet_client/internal/pkg/logger"
	"wallet_client/internal/pkg/metrics"
	"wallet_client/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yml")
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Metrics.Enabled {
		metrics.MustRegisterMetrics()
	}

	appLog := logger.NewSlogAdapter()

	networks := provider.NewNetworkProvider(cfg.Networks.OverridesDir, appLog)
	catalogStore := service.NewCatalogStore(service.NewAssetCatalog(networks), appLog)
	validator := addressvalidator.New()

	walletAPI := httpclient.NewWalletAPIClient(httpclient.Options{
		BaseURL:    cfg.WalletAPI.BaseURL,
		AuthToken:  cfg.WalletAPI.AuthToken,
		Timeout:    time.Duration(cfg.WalletAPI.RequestTimeoutMillis) * time.Millisecond,
		RateLimit:  cfg.WalletAPI.RateLimit,
		BurstLimit: cfg.WalletAPI.BurstLimit,
	}, zapLogger)

	push := pushclient.New(pushclient.Options{
		URL:                  cfg.Push.URL,
		AuthToken:            cfg.WalletAPI.AuthToken,
		ReconnectDelay:       time.Duration(cfg.Push.ReconnectDelayMillis) * time.Millisecond,
		MaxReconnectAttempts: cfg.Push.MaxReconnectAttempts,
		PingInterval:         time.Duration(cfg.Push.PingIntervalSeconds) * time.Second,
	}, logger.NewZapAdapter(zapLogger.Named("PushClient")))

	balanceSync := service.NewBalanceSync(catalogStore, push, walletAPI, appLog,
		time.Duration(cfg.Push.RefreshTimeoutMillis)*time.Millisecond)
	balanceSync.Start()
	defer balanceSync.Stop()

	sessions := sessionstore.New(
		time.Duration(cfg.Withdrawal.SessionTTLMinutes)*time.Minute,
		time.Duration(cfg.Withdrawal.CleanupIntervalMinutes)*time.Minute,
		appLog,
	)
	newFlow := func() *service.WithdrawalFlow {
		return service.NewWithdrawalFlow(service.WithdrawalFlowDeps{
			Catalog:   catalogStore,
			Networks:  networks,
			Addresses: validator,
			Wallet:    walletAPI,
			Logger:    appLog,
		})
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router := restapi.SetupRouter(
		restapi.RouterOptions{AllowOrigins: cfg.Server.AllowOrigins, MetricsPath: metricsPath},
		restapi.NewAssetHandler(catalogStore, networks, balanceSync),
		restapi.NewPinHandler(walletAPI, appLog),
		restapi.NewWithdrawalHandler(sessions, newFlow, appLog),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return push.Run(gctx)
	})

	g.Go(func() error {
		refreshCtx, cancel := context.WithTimeout(gctx, 30*time.Second)
		defer cancel()
		outcome := balanceSync.Refresh(refreshCtx)
		zapLogger.Info("Initial balance load finished", zap.String("outcome", string(outcome)))
		return nil
	})

	g.Go(func() error {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down server...")
		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		return srv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	zapLogger.Info("Server exiting")
}
