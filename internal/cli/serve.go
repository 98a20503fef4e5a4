package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drillbi-quiz/internal/config"
	transport "drillbi-quiz/internal/transport/http"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

// NewServeCmd runs a quiz host and exposes it to a browser over websocket.
func NewServeCmd(configPath *string) *cobra.Command {
	flags := sessionFlags{}
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a quiz host with a websocket presentation feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			params, err := flags.params()
			if err != nil {
				return err
			}
			h, cleanup, err := buildHost(cmd.Context(), cfg, flags.token)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := h.Open(cmd.Context(), params); err != nil {
				glog.Warningf("initial quiz start failed: %v", err)
			}
			if port == "" {
				port = cfg.Server.Port
			}
			router := transport.NewFeedRouter(transport.NewWSHandler(h), cfg.Server.Origins)
			err = listen(cmd.Context(), port, router)
			h.Stop()
			return err
		},
	}
	addSessionFlags(cmd, &flags)
	cmd.Flags().StringVar(&port, "port", os.Getenv("PORT"), "port to listen on")
	return cmd
}

// listen serves handler until SIGINT/SIGTERM or ctx cancellation.
func listen(ctx context.Context, port string, handler http.Handler) error {
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
		glog.Infof("shutting down server...")
	case <-ctx.Done():
		glog.Infof("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
