// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeindexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// pathHash renders an ASCII-safe encoding of a file path for use in an
// entity key (`__crates_src_main_rs` style): every non-ASCII-alphanumeric character becomes an
// underscore, with a leading "__" marker so the segment can never collide
// with an ordinary name segment.
func pathHash(relPath string) string {
	var b strings.Builder
	b.WriteString("__")
	for _, r := range relPath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// entityKey builds an entity key of the form:
// {lang}:{type}:{name}:{path_hash}:{start}-{end}.
func entityKey(lang, entityType, name, relPath string, startLine, endLine int) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d-%d", lang, entityType, name, pathHash(relPath), startLine, endLine)
}

// externalKey builds the key of a reference the indexer could not resolve
// within the paths it was given: {lang}:{type}:{name}:unknown:0-0.
func externalKey(lang, entityType, name string) string {
	return fmt.Sprintf("%s:%s:%s:unknown:0-0", lang, entityType, name)
}

// contentHash derives a stable content hash for an entity's source text.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
