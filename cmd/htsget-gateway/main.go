package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ga4gh/htsget-gateway/internal/config"
	"github.com/ga4gh/htsget-gateway/internal/dataserver"
	"github.com/ga4gh/htsget-gateway/internal/httplog"
	"github.com/ga4gh/htsget-gateway/internal/ticketserver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "htsget-gateway",
		Short: "GA4GH htsget ticket and data server",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newResolversCmd(&configPath))
	root.AddCommand(newHealthcheckCmd())

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the ticket server and (optionally) the local data server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func newResolversCmd(configPath *string) *cobra.Command {
	validate := &cobra.Command{
		Use:   "validate",
		Short: "load the configuration and compile every resolver rule, reporting errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if _, err := config.BuildResolver(cmd.Context(), cfg, http.DefaultClient); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d resolver rules compiled across %d locations\n", len(cfg.Resolvers), len(cfg.Locations))
			return nil
		},
	}

	resolvers := &cobra.Command{
		Use:   "resolvers",
		Short: "inspect and validate the resolver configuration",
	}
	resolvers.AddCommand(validate)
	return resolvers
}

func newHealthcheckCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "query a running server's /healthz endpoint (for scratch-container probes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get("http://" + addr + "/healthz")
			if err != nil || resp.StatusCode != http.StatusOK {
				return fmt.Errorf("healthcheck failed: %v", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "address of the server to probe")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolv, err := config.BuildResolver(ctx, cfg, http.DefaultClient)
	if err != nil {
		return fmt.Errorf("building resolver: %w", err)
	}

	idxCache, err := config.BuildIndexCache(ctx, cfg.IndexCache)
	if err != nil {
		return fmt.Errorf("building index cache: %w", err)
	}

	ticketHandler := &ticketserver.Handler{
		Resolver:    resolv,
		ServiceInfo: cfg.ServiceInfo,
		IndexCache:  idxCache,
	}

	servers := []*http.Server{newTicketServer(cfg, ticketHandler)}
	if cfg.DataServer.Enabled {
		servers = append(servers, newDataServer(cfg))
	}

	for _, srv := range servers {
		srv := srv
		go func() {
			slog.Info("starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server error", "addr", srv.Addr, "error", err)
				os.Exit(1)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "addr", srv.Addr, "error", err)
		}
	}
	slog.Info("shutdown complete")
	return nil
}

func newTicketServer(cfg config.Config, h *ticketserver.Handler) *http.Server {
	mux := ticketserver.NewMux(h)
	handler := httplog.Middleware(withCORS(mux, cfg.TicketServer.CORSAllowOrigin))

	// Wrap with h2c for cleartext HTTP/2 support alongside HTTP/1.1.
	h2s := &http2.Server{}
	return &http.Server{
		Addr:    cfg.TicketServer.Addr,
		Handler: h2c.NewHandler(handler, h2s),
	}
}

func newDataServer(cfg config.Config) *http.Server {
	handler := dataserver.New(cfg.DataServer.LocalPath, cfg.DataServer.ServeAt)
	return &http.Server{
		Addr:    cfg.DataServer.Addr,
		Handler: httplog.Middleware(dataserver.NewMux(handler)),
	}
}

func withCORS(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
