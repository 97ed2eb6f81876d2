package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/api"
	"github.com/sells-group/enrich-cli/internal/config"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv, apiSrv := buildServer(ctx, env, cfg.Server, port)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		// In-flight jobs see the cancelled context and finish as FAILED.
		apiSrv.Wait()
		return nil
	},
}

// buildServer wires the job API onto an http.Server listening on port.
// Background jobs are bound to ctx.
func buildServer(ctx context.Context, env *enrichEnv, sc config.ServerConfig, port int) (*http.Server, *api.Server) {
	apiSrv := api.New(env.Store, env.Orchestrator,
		api.WithBaseContext(ctx),
		api.WithUploadRate(sc.UploadRatePerMinute),
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           apiSrv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, apiSrv
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
