// Copyright 2025 Andrei Grigoriu
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakproject-flink/flinkctl/internal/handlers"
	"github.com/oakproject-flink/flinkctl/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var metricsInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the job-control HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewComponent("gateway")
			api := handlers.NewAPI(a.client, log, handlers.WithMetricsInterval(metricsInterval))
			e := handlers.NewServer(api, log)

			return serve(cmd.Context(), e, a.cfg.Serve.Address, log)
		},
	}

	cmd.Flags().String("address", ":8080", "Listen address")
	cmd.Flags().DurationVar(&metricsInterval, "metrics-interval", handlers.DefaultMetricsInterval, "Refresh period of metrics streams")

	return cmd
}

// httpServer is the part of *echo.Echo serve drives
type httpServer interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is cancelled or the listener fails, then shuts
// it down within shutdownTimeout
func serve(ctx context.Context, srv httpServer, address string, log *logger.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		log.Infof("flinkctl gateway starting on %s", address)
		if err := srv.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Infof("Received shutdown signal, shutting down...")
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		log.Errorf("Server error: %v, shutting down...", err)
		serveErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
		if serveErr == nil {
			serveErr = err
		}
	}

	log.Infof("Gateway stopped")
	return serveErr
}
