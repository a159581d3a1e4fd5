// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package graphstore

import "errors"

var (
	// ErrClosed is returned by any Store method called after Close.
	ErrClosed = errors.New("graphstore: store is closed")

	// ErrIncompatibleStore is returned by ReplaceWith when src is not the
	// same concrete Store implementation as the receiver.
	ErrIncompatibleStore = errors.New("graphstore: incompatible store implementation")
)
