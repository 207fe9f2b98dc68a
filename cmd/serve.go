package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"vidcompress/journal"
	"vidcompress/logger"
	"vidcompress/routes"
	"vidcompress/utils"
)

func ServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the completion handler, metadata logger and record administration over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			addr, _ := cmd.Flags().GetString("addr")
			retention, _ := cmd.Flags().GetDuration("retention")

			handler, err := a.CompletionHandler(ctx)
			if err != nil {
				return err
			}

			server := &routes.Server{
				Completion: handler,
				Metadata:   a.Metadata(),
				Journal:    a.Journal(),
			}
			if a.cfg.InvokeTokenSecret != "" {
				server.Token = &utils.VerifyConfig{
					SecretKey:      []byte(a.cfg.InvokeTokenSecret),
					ExpectedIssuer: a.cfg.InvokeTokenIssuer,
					ClockSkew:      30 * time.Second,
				}
			} else {
				logger.Warn("INVOKE_TOKEN_SECRET not set; /metadata accepts unauthenticated requests")
			}

			if server.Journal != nil && retention > 0 {
				go cleanupRoutine(ctx, server.Journal, retention)
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				logger.Info("Shutting down HTTP server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			logger.Infof("vidcompress server starting on %s", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", a.cfg.HTTPAddr, "Listen address")
	cmd.Flags().Duration("retention", 30*24*time.Hour, "Journal entries older than this are removed daily (0 disables)")
	return cmd
}

// cleanupRoutine periodically removes old journal entries.
func cleanupRoutine(ctx context.Context, j *journal.Journal, maxAge time.Duration) {
	logger.Info("Cleanup routine started - will run every 24 hours")
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
			logger.Debugf("Cleaning up journal entries older than %v", maxAge)
			removed, err := j.CleanupOldRecords(maxAge)
			if err != nil {
				logger.Errorf("Failed to cleanup old journal entries: %v", err)
				continue
			}
			logger.Infof("Scheduled cleanup removed %d journal entries", removed)
		}
	}
}
