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

// Package ui renders the CLI's human-facing output: headers, labels, and
// color-coded status lines. It never touches the WebSocket wire protocol —
// that is JSON, handled entirely by internal/broadcast.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color palette used throughout the CLI output.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
)

// InitColors enables or disables ANSI color output. When noColor is false,
// color is still disabled automatically if stdout is not a terminal.
func InitColors(noColor bool) {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold top-level section heading.
func Header(title string) {
	fmt.Printf("\n%s\n", color.New(color.Bold).Sprint(title))
}

// SubHeader prints a secondary heading, one level down from Header.
func SubHeader(title string) {
	fmt.Printf("\n%s\n", color.New(color.Bold, color.FgCyan).Sprint(title))
}

// Label renders a field name for a "Label: value" line.
func Label(text string) string {
	return color.New(color.Bold).Sprint(text)
}

// DimText renders secondary, low-emphasis text.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// CountText renders an integer count, emphasized so it stands out inline.
func CountText(n int) string {
	return color.New(color.Bold).Sprintf("%d", n)
}

// Info prints an informational line prefixed with a neutral marker.
func Info(msg string) {
	fmt.Printf("%s %s\n", Cyan.Sprint("ℹ"), msg)
}

// Infof is Info with fmt.Sprintf-style formatting.
func Infof(format string, args ...interface{}) {
	Info(fmt.Sprintf(format, args...))
}

// Success prints a line prefixed with a green checkmark.
func Success(msg string) {
	fmt.Printf("%s %s\n", Green.Sprint("✓"), msg)
}

// Successf is Success with fmt.Sprintf-style formatting.
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Warning prints a line prefixed with a yellow marker to stderr.
func Warning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", Yellow.Sprint("⚠"), msg)
}

// Warningf is Warning with fmt.Sprintf-style formatting.
func Warningf(format string, args ...interface{}) {
	Warning(fmt.Sprintf(format, args...))
}

// Errorf prints a line prefixed with a red marker to stderr.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", Red.Sprint("✗"), fmt.Sprintf(format, args...))
}
