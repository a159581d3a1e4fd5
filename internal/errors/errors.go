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
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors implements a stable error taxonomy: a stable set of codes
// every public operation fails with, plus the CLI-facing UserError used by
// cmd/parseltongue to render human-readable diagnostics.
package errors

import "fmt"

// Code is one of the stable, programmatically-branchable error codes from
// Messages attached to a Code are human-readable and may change; the
// Code itself is the contract.
type Code string

const (
	// Input validation.
	CodeInvalidWorkspaceIDEmpty Code = "INVALID_WORKSPACE_ID_EMPTY"
	CodeMissingWorkspaceID      Code = "MISSING_WORKSPACE_ID"
	CodeMissingWatchState       Code = "MISSING_WATCH_STATE"
	CodeInvalidMessageType      Code = "INVALID_MESSAGE_TYPE"
	CodeInvalidJSONMessage      Code = "INVALID_JSON_MESSAGE"
	CodeUnknownActionType       Code = "UNKNOWN_ACTION_TYPE"

	// Workspace domain.
	CodeWorkspaceNotFound      Code = "WORKSPACE_NOT_FOUND"
	CodeWorkspaceAlreadyExists Code = "WORKSPACE_ALREADY_EXISTS"
	CodeWorkspaceNotWatching   Code = "WORKSPACE_NOT_WATCHING"
	CodePathNotFound           Code = "PATH_NOT_FOUND"
	CodePathNotDirectory       Code = "PATH_NOT_DIRECTORY"
	CodePermissionDenied       Code = "PERMISSION_DENIED"

	// Watcher.
	CodeWatcherAlreadyExists Code = "WATCHER_ALREADY_EXISTS"
	CodeWatcherNotFound      Code = "WATCHER_NOT_FOUND"
	CodeWatcherStartFailed   Code = "WATCHER_START_FAILED"
	CodeWatcherStopFailed    Code = "WATCHER_STOP_FAILED"
	CodeSystemLimitReached   Code = "SYSTEM_LIMIT_REACHED"

	// Reindex.
	CodeReindexParseError    Code = "REINDEX_PARSE_ERROR"
	CodeReindexDatabaseError Code = "REINDEX_DATABASE_ERROR"
	CodeReindexTimeout       Code = "REINDEX_TIMEOUT"

	// Subscription.
	CodeAlreadySubscribed         Code = "ALREADY_SUBSCRIBED"
	CodeNotSubscribed             Code = "NOT_SUBSCRIBED"
	CodeSubscriptionLimitExceeded Code = "SUBSCRIPTION_LIMIT_EXCEEDED"
	CodeConnectionTimeout         Code = "CONNECTION_TIMEOUT"

	// Storage.
	CodeStorageWriteFailed Code = "STORAGE_WRITE_FAILED"
	CodeStorageReadFailed  Code = "STORAGE_READ_FAILED"

	// Generic.
	CodeInternalError Code = "INTERNAL_ERROR"
)

// Error is the domain error every public operation in internal/workspace,
// internal/watcher, and internal/broadcast fails with: a stable Code plus a
// human-readable Message, per the "{code, message}" wire contract.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error. cause may be nil.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the Code carried by err, if any, and whether one was
// found. Useful at API boundaries (HTTP/WS adapters) translating a domain
// error into the wire {code, message} shape.
func CodeOf(err error) (Code, bool) {
	var domainErr *Error
	if ok := As(err, &domainErr); ok {
		return domainErr.Code, true
	}
	return "", false
}

// As walks err's single-Unwrap chain and stores the first *Error it finds
// in target, so callers of this package don't need a second import for
// the common case. Errors joined with errors.Join (Unwrap() []error) are
// not searched.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
