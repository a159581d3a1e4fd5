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

// Package broadcast fans a workspace's diff results out to its WebSocket
// subscribers as an ordered stream of structured events, independent of the
// transport that eventually serializes them.
package broadcast

import (
	"time"

	"github.com/kraklabs/parseltongue/internal/codegraph"
)

// EventType is the "event" discriminator of one outbound message.
type EventType string

const (
	EventSubscribed          EventType = "Subscribed"
	EventUnsubscribed        EventType = "Unsubscribed"
	EventPong                EventType = "Pong"
	EventDiffAnalysisStarted EventType = "DiffAnalysisStarted"
	EventEntityRemoved       EventType = "EntityRemoved"
	EventEntityAdded         EventType = "EntityAdded"
	EventEntityModified      EventType = "EntityModified"
	EventEdgeRemoved         EventType = "EdgeRemoved"
	EventEdgeAdded           EventType = "EdgeAdded"
	EventDiffAnalysisCompleted EventType = "DiffAnalysisCompleted"
	EventErrorOccurred       EventType = "ErrorOccurred"
)

// Event is the flat wire envelope for every Hub -> client message.
// Fields irrelevant to a given Type are left zero and omitted from JSON.
type Event struct {
	Type        EventType `json:"event"`
	Timestamp   time.Time `json:"ts"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`

	FilesChanged []string `json:"files_changed,omitempty"`
	TriggeredBy  string   `json:"triggered_by,omitempty"`

	EntityKey   string           `json:"entity_key,omitempty"`
	EntityType  codegraph.EntityType `json:"entity_type,omitempty"`
	FilePath    string           `json:"file_path,omitempty"`
	LineRange   *codegraph.LineRange `json:"line_range,omitempty"`
	BeforeRange *codegraph.LineRange `json:"before_line_range,omitempty"`
	AfterRange  *codegraph.LineRange `json:"after_line_range,omitempty"`

	FromStableID string           `json:"from_stable_id,omitempty"`
	ToStableID   string           `json:"to_stable_id,omitempty"`
	EdgeType     codegraph.EdgeType `json:"edge_type,omitempty"`

	Summary          *codegraph.DiffSummary `json:"summary,omitempty"`
	BlastRadiusTotal int                    `json:"blast_radius_total,omitempty"`
	DurationMS       int64                  `json:"duration_ms,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	BatchNumber  int `json:"batch_number,omitempty"`
	TotalBatches int `json:"total_batches,omitempty"`
}
