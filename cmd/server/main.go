// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaycherian/gcp-go-image-captioner/internal/api"
	"github.com/jaycherian/gcp-go-image-captioner/internal/telemetry"
)

// ShutdownTimeout bounds the graceful drain of in-flight requests.
const ShutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	config, err := GetConfig()
	if err != nil {
		return err
	}

	closeLog, err := telemetry.SetupLogging(config.Telemetry.LogLevel, config.Telemetry.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	slog.Info("Logging initialized", "level", config.Telemetry.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()
	slog.Info("Tracing initialized", "exporter", config.Telemetry.Exporter)

	state, err := InitState(ctx, config)
	if err != nil {
		return err
	}
	defer state.Close()
	slog.Info("Initialized State")

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(config.Application.HTTPPort),
		Handler:           api.NewRouter(state.RouterConfig()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server ready", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	for name, listener := range state.cloud.PubSubListeners {
		g.Go(func() error {
			slog.Info("starting listener", "listener", name)
			return listener.Listen(gctx)
		})
	}
	if state.nats != nil && config.Notifications.NatsUploadSubject != "" {
		sub, err := state.nats.SubscribeUploads(gctx, config.Notifications.NatsUploadSubject, state.workflow)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		defer func() { _ = sub.Unsubscribe() }()
		slog.Info("subscribed to nats uploads", "subject", config.Notifications.NatsUploadSubject)
	}

	err = g.Wait()
	slog.Info("Server exiting")
	return err
}
