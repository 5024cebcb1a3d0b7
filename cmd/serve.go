package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"

	"shortlink/internal/api"
	"shortlink/internal/auth"
	"shortlink/internal/ratelimit"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, Cfg, log)
		if err != nil {
			return err
		}

		verifier := auth.NewVerifier(Cfg.Auth.JWTSecret)
		if !verifier.Enabled() {
			log.Warn("auth.jwt_secret is empty, authenticated routes will reject every request")
		}

		var limits limiter.Store
		if Cfg.RateLimit.Enabled {
			limits, err = ratelimit.NewStore(a.redis)
			if err != nil {
				a.shutdown(context.Background(), log)
				return err
			}
		}

		if Cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := api.NewRouter(api.RouterConfig{
			Handler:       api.NewHandler(a.svc, a.ping, log),
			Verifier:      verifier,
			LimitStore:    limits,
			GeneralPolicy: ratelimit.Policy{Name: "general", Limit: Cfg.RateLimit.GeneralLimit, Period: Cfg.RateLimit.GeneralPeriod},
			CreatePolicy:  ratelimit.Policy{Name: "create", Limit: Cfg.RateLimit.CreateLimit, Period: Cfg.RateLimit.CreatePeriod},
			Logger:        log,
		})

		srv := &http.Server{
			Addr:         Cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  Cfg.Server.ReadTimeout,
			WriteTimeout: Cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("server listening", "addr", srv.Addr, "base_url", Cfg.Server.BaseURL)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				a.shutdown(context.Background(), log)
				return err
			}
		case <-ctx.Done():
			log.Info("received shutdown signal")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), Cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		a.shutdown(shutdownCtx, log)
		log.Info("server stopped gracefully")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(ServeCmd)
}
