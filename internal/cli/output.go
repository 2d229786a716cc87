// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles renders colour only when stdout is a terminal; the renderer falls
// back to plain text for pipes and buffers.
type styles struct {
	name lipgloss.Style
	ok   lipgloss.Style
	warn lipgloss.Style
	bad  lipgloss.Style
	dim  lipgloss.Style
}

func (a *App) styles() styles {
	r := lipgloss.NewRenderer(a.Stdout)
	return styles{
		name: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		ok:   r.NewStyle().Foreground(lipgloss.Color("10")),
		warn: r.NewStyle().Foreground(lipgloss.Color("11")),
		bad:  r.NewStyle().Foreground(lipgloss.Color("9")),
		dim:  r.NewStyle().Faint(true),
	}
}

func (s styles) state(state string) string {
	switch state {
	case "ok", "clean":
		return s.ok.Render(state)
	case "modified":
		return s.warn.Render(state)
	case "missing":
		return s.bad.Render(state)
	}
	return state
}

// table writes rows with columns padded to their widest cell. Widths ignore
// ANSI styling.
func (a *App) table(rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		fmt.Fprintln(a.Stdout, strings.TrimRight(b.String(), " "))
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Stdout, format, args...)
}

func (a *App) warnf(format string, args ...any) {
	fmt.Fprintf(a.Stderr, "warning: "+format+"\n", args...)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// interactive reports whether a.Stdin is a terminal a human can answer on.
func (a *App) interactive() bool {
	f, ok := a.Stdin.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
