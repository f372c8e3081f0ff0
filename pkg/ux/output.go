// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux holds the terminal styling shared by stampsweep's operator output.
//
// A Printer writes styled text to a TTY and plain, prefix-tagged text
// everywhere else, so redirected output stays greppable.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes operator-facing messages to one writer.
//
// # Description
//
// In plain mode every message is a single tagged line ("WARN: ...") with no
// escape sequences; in styled mode lipgloss renders icons, colours and boxes.
// The CLI chooses plain mode when the writer is not a terminal.
//
// # Thread Safety
//
// Printer is as safe as its writer.
type Printer struct {
	w     io.Writer
	plain bool
}

// NewPrinter creates a Printer.
func NewPrinter(w io.Writer, plain bool) *Printer {
	if w == nil {
		w = io.Discard
	}
	return &Printer{w: w, plain: plain}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Title prints a styled title. Plain mode prints it unadorned.
func (p *Printer) Title(text string) {
	if p.plain {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message
func (p *Printer) Info(text string) {
	if p.plain {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Box prints content under a title. Plain mode indents the content.
func (p *Printer) Box(title, content string) {
	if p.plain {
		fmt.Fprintf(p.w, "%s:\n%s\n", title, indent(content))
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox prints content under a warning title.
func (p *Printer) WarningBox(title, content string) {
	if p.plain {
		fmt.Fprintf(p.w, "WARN %s:\n%s\n", title, indent(content))
		return
	}
	fmt.Fprintln(p.w, Styles.WarningBox.Render(Styles.Warning.Bold(true).Render(title)+"\n"+content))
}

// Rule prints a horizontal separator.
func (p *Printer) Rule() {
	line := strings.Repeat("-", 71)
	if p.plain {
		fmt.Fprintln(p.w, line)
		return
	}
	fmt.Fprintln(p.w, Styles.Muted.Render(line))
}

func indent(s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return "    (no output)"
	}
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
