// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders CLI output for the graph tools.
//
// Output is styled with lipgloss on a terminal and falls back to plain
// "KEY: value" lines when stdout is piped, so the same commands work in
// scripts.
package ux

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")
	ColorWarning     = lipgloss.Color("#F4D03F")
	ColorError       = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Key     lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Key:     lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Mode controls how much styling a Printer applies.
type Mode string

const (
	// ModeStyled renders colors, icons and boxes.
	ModeStyled Mode = "styled"

	// ModePlain renders icons without colors.
	ModePlain Mode = "plain"

	// ModeMachine renders stable, prefix-tagged lines for scripts.
	ModeMachine Mode = "machine"
)

// ParseMode maps a name to a Mode; unknown names select ModeStyled.
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "plain", "minimal":
		return ModePlain
	case "machine", "quiet", "json":
		return ModeMachine
	default:
		return ModeStyled
	}
}

// DetectMode picks ModeStyled for terminals and ModeMachine otherwise.
// NO_COLOR downgrades a terminal to ModePlain.
func DetectMode(f *os.File) Mode {
	if f == nil {
		return ModeMachine
	}
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ModeMachine
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	return ModeStyled
}

// Printer writes user-facing CLI output.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter returns a printer writing to w in mode.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Stdout returns a printer on os.Stdout with a detected mode.
func Stdout() *Printer {
	return NewPrinter(os.Stdout, DetectMode(os.Stdout))
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Writer returns the printer's destination.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Title prints a heading. Machine mode omits it.
func (p *Printer) Title(text string) {
	switch p.mode {
	case ModeMachine:
	case ModePlain:
		fmt.Fprintln(p.w, text)
	default:
		fmt.Fprintln(p.w, Styles.Title.Render(text))
	}
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	p.status("OK", IconSuccess, Styles.Success, text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	p.status("WARN", IconWarning, Styles.Warning, text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.status("ERROR", IconError, Styles.Error, text)
}

func (p *Printer) status(tag string, icon Icon, style lipgloss.Style, text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.w, "%s: %s\n", tag, text)
	case ModePlain:
		fmt.Fprintf(p.w, "%s %s\n", icon, text)
	default:
		fmt.Fprintf(p.w, "%s %s\n", style.Render(string(icon)), style.Render(text))
	}
}

// List prints one bullet per item.
func (p *Printer) List(items []string) {
	for _, item := range items {
		if p.mode == ModeMachine {
			fmt.Fprintln(p.w, item)
			continue
		}
		fmt.Fprintf(p.w, "  %s %s\n", IconBullet, item)
	}
}

// KeyValue is one row of a summary table.
type KeyValue struct {
	Key   string
	Value string
}

// CountRows converts a count map to rows sorted by key.
func CountRows(counts map[string]int) []KeyValue {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]KeyValue, len(keys))
	for i, k := range keys {
		rows[i] = KeyValue{Key: k, Value: fmt.Sprintf("%d", counts[k])}
	}
	return rows
}

// Table prints aligned key/value rows, boxed under title in styled mode.
// Machine mode prints "key=value" lines.
func (p *Printer) Table(title string, rows []KeyValue) {
	if p.mode == ModeMachine {
		for _, r := range rows {
			fmt.Fprintf(p.w, "%s=%s\n", r.Key, r.Value)
		}
		return
	}

	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Key))
	}
	lines := make([]string, 0, len(rows)+1)
	for _, r := range rows {
		key := r.Key + strings.Repeat(" ", width-lipgloss.Width(r.Key))
		if p.mode == ModeStyled {
			key = Styles.Key.Render(key)
		}
		lines = append(lines, key+"  "+r.Value)
	}

	if p.mode == ModePlain {
		if title != "" {
			fmt.Fprintln(p.w, title)
		}
		fmt.Fprintln(p.w, strings.Join(lines, "\n"))
		return
	}
	if title != "" {
		lines = append([]string{Styles.Title.Render(title)}, lines...)
	}
	fmt.Fprintln(p.w, Styles.Box.Render(strings.Join(lines, "\n")))
}
