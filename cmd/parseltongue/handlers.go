// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createWorkspaceRequest struct {
	SourceDir   string `json:"source_dir"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *wsServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}
	ws, err := s.app.registry.Create(r.Context(), req.SourceDir, req.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *wsServer) handleList(w http.ResponseWriter, r *http.Request) {
	list := s.app.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": list, "count": len(list)})
}

type toggleWatchRequest struct {
	DesiredEnabled bool `json:"desired_enabled"`
}

func (s *wsServer) handleToggleWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")
	var req toggleWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}
	ws, err := s.app.registry.ToggleWatch(r.Context(), id, req.DesiredEnabled)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *wsServer) handleDiff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")
	maxHops := s.app.cfg.MaxHops
	if v := r.URL.Query().Get("max_hops"); v != "" {
		if parsed, ok := parsePositiveInt(v); ok {
			maxHops = parsed
		}
	}
	result, err := s.app.registry.ComputeDiff(r.Context(), id, maxHops)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *wsServer) handlePin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")
	if err := s.app.registry.PinLiveAsBase(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspace_id": id, "pinned": true})
}

func (s *wsServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")
	if err := s.app.registry.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspace_id": id, "deleted": true})
}

func parsePositiveInt(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
