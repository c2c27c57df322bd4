package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/secscan/internal/infra/httpserver"
	"github.com/bryanwahyu/secscan/internal/middleware"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		ctx := context.Background()
		a := newApp(ctx, cfg, log)
		defer a.Close()

		health := map[string]middleware.HealthChecker{
			"reports": &middleware.ReportDirHealthChecker{Dir: a.svc.ReportDir},
		}
		if a.db != nil {
			health["database"] = &middleware.DatabaseHealthChecker{DB: a.db}
		}
		if cfg.Server.APIKey == "" {
			log.Warnf("server.apiKey not set; POST /v1/scans is disabled")
		}

		// init router
		mux := chi.NewRouter()
		mux.Mount("/", httpserver.NewRouter(a.svc, httpserver.Options{
			APIKey:  cfg.Server.APIKey,
			Origins: cfg.Server.Origins,
			Health:  health,
			Log:     log,
		}))

		// WriteTimeout is long: POST /v1/scans runs the whole scan inside the request
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Infof("server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		// graceful shutdown
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case <-stop:
		case err := <-errCh:
			return &exitError{code: 2, err: fmt.Errorf("server: %w", err)}
		}
		log.Infof("shutting down server...")

		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx2); err != nil {
			log.Errorf("shutdown error: %v", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
