// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/parseltongue/internal/metrics"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
)

// runServe starts the HTTP server exposing the workspace management
// surface and the WebSocket diff stream. It blocks until
// SIGINT/SIGTERM, then drains in-flight connections for up to 5s.
func runServe(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("listen", "", "Override the configured listen address")
	_ = fs.Parse(args)

	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
		return 1
	}

	listenAddr := a.cfg.ListenAddr
	if *addr != "" {
		listenAddr = *addr
	}

	srv := &wsServer{app: a}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/v1/workspaces", func(r chi.Router) {
		r.Post("/", srv.handleCreate)
		r.Get("/", srv.handleList)
		r.Patch("/{workspaceID}/watch", srv.handleToggleWatch)
		r.Get("/{workspaceID}/diff", srv.handleDiff)
		r.Post("/{workspaceID}/pin", srv.handlePin)
		r.Delete("/{workspaceID}", srv.handleDelete)
	})
	r.Get("/websocket-diff-stream", srv.handleWebSocket)

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleCh := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		a.logger.Info("server.shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		close(idleCh)
	}()

	a.logger.Info("server.starting", "listen_addr", listenAddr, "data_dir", a.cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		return 1
	}
	<-idleCh
	return 0
}

type wsServer struct {
	app *app
}

func (s *wsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDomainError(w http.ResponseWriter, err error) {
	code, ok := parserrors.CodeOf(err)
	if !ok {
		code = parserrors.CodeInternalError
	}
	writeJSON(w, statusForCode(code), map[string]any{"code": string(code), "message": err.Error()})
}

func statusForCode(code parserrors.Code) int {
	switch code {
	case parserrors.CodeInvalidWorkspaceIDEmpty, parserrors.CodeMissingWorkspaceID, parserrors.CodeMissingWatchState,
		parserrors.CodeInvalidJSONMessage, parserrors.CodeUnknownActionType, parserrors.CodePathNotDirectory:
		return http.StatusBadRequest
	case parserrors.CodeWorkspaceNotFound, parserrors.CodePathNotFound:
		return http.StatusNotFound
	case parserrors.CodeWorkspaceAlreadyExists, parserrors.CodeAlreadySubscribed:
		return http.StatusConflict
	case parserrors.CodePermissionDenied:
		return http.StatusForbidden
	case parserrors.CodeSubscriptionLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
