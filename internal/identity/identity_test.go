// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "testing"

func TestStableID_StripsLineRange(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"rust:fn:foo:__src_lib_rs:10-20", "rust:fn:foo:__src_lib_rs"},
		{"rust:fn:foo:__src_lib_rs:25-35", "rust:fn:foo:__src_lib_rs"},
		{"go:struct:Builder:__internal_store_builder_go:1-1", "go:struct:Builder:__internal_store_builder_go"},
	}
	for _, c := range cases {
		if got := StableID(c.key); got != c.want {
			t.Errorf("StableID(%q) = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestStableID_MalformedInputUnchanged(t *testing.T) {
	cases := []string{
		"onlyonecolon:",
		"nocolonsatall",
		"rust:fn:foo:bar:not-a-range",
		"rust:fn:foo:bar:10-",
		"rust:fn:foo:bar:-10",
		"",
	}
	for _, key := range cases {
		if got := StableID(key); got != key {
			t.Errorf("StableID(%q) = %q, want unchanged", key, got)
		}
	}
}

func TestStableID_ExternalReferenceUnchanged(t *testing.T) {
	key := "rust:fn:HashMap.new:unknown:0-0"
	if got := StableID(key); got != key {
		t.Errorf("StableID(external) = %q, want unchanged %q", got, key)
	}
}

// P1: stable_id is idempotent.
func TestStableID_Idempotent(t *testing.T) {
	keys := []string{
		"rust:fn:foo:__src_lib_rs:10-20",
		"rust:fn:HashMap.new:unknown:0-0",
		"weird",
	}
	for _, k := range keys {
		once := StableID(k)
		twice := StableID(once)
		if once != twice {
			t.Errorf("StableID not idempotent for %q: once=%q twice=%q", k, once, twice)
		}
	}
}

func TestIsExternal(t *testing.T) {
	if !IsExternal("rust:fn:HashMap.new:unknown:0-0", "unknown", "") {
		t.Error("expected external reference to be detected by key suffix")
	}
	if !IsExternal("rust:fn:foo:hash:1-2", "unknown", "") {
		t.Error("expected external reference to be detected by file_path == unknown")
	}
	if IsExternal("rust:fn:foo:hash:1-2", "/repo/src/lib.rs", "/repo") {
		t.Error("did not expect internal entity under workspace root to be external")
	}
	if !IsExternal("rust:fn:foo:hash:1-2", "/other/lib.rs", "/repo") {
		t.Error("expected entity outside workspace root to be external")
	}
}

func TestNormalizeKey_AliasesStableID(t *testing.T) {
	key := "rust:fn:foo:hash:10-20"
	if NormalizeKey(key) != StableID(key) {
		t.Error("NormalizeKey must alias StableID")
	}
}
