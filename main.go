package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bitwise74/account-api/app"
	"bitwise74/account-api/config"
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// In-flight requests get this long to finish after SIGINT or SIGTERM
const shutdownTimeout = 10 * time.Second

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	if err := app.MakeLogger(); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := internal.NewDeps(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer d.Close()

	rate := viper.GetInt("security.rate_limit")
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rate,
		Burst:             rate * 2,
	})

	router, err := app.NewRouter(d, limiter)
	if err != nil {
		zap.L().Fatal("Failed to build router", zap.Error(err))
	}

	go limiter.Cleanup(ctx)

	// Reset and renewal tokens live for minutes, sweep them regularly
	go service.TokenCleanup(ctx, viper.GetDuration("cleanup.interval"), d.Users, d.APIKeys)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("host.port")),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	zap.L().Info("Server starting", zap.String("addr", srv.Addr), zap.String("env", viper.GetString("app.env")))

	listen := srv.ListenAndServe
	if viper.GetBool("host.ssl.enabled") {
		listen = func() error {
			return srv.ListenAndServeTLS(
				viper.GetString("host.ssl.certificate_path"),
				viper.GetString("host.ssl.certificate_key_path"),
			)
		}
	}

	if err := serve(ctx, srv, listen); err != nil {
		zap.L().Error("Server stopped", zap.Error(err))
	}
}

// serve runs listen until it fails or ctx is done. On ctx it drains srv and
// returns once in-flight requests finished or shutdownTimeout passed.
func serve(ctx context.Context, srv *http.Server, listen func() error) error {
	errc := make(chan error, 1)
	go func() {
		errc <- listen()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
