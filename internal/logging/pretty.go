// SPDX-License-Identifier: AGPL-3.0-or-later
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// PrettyHandler writes just the message, colored by level, for people
// watching a terminal. Attributes other than the component are appended
// dimmed.
type PrettyHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	color bool
	r     *lipgloss.Renderer

	attrs  []slog.Attr
	prefix string // group prefix for attribute keys
}

func NewPrettyHandler(w io.Writer, level slog.Leveler, color bool) *PrettyHandler {
	return &PrettyHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		color: color,
		r:     lipgloss.NewRenderer(w),
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, rec slog.Record) error {
	var extra []string
	add := func(a slog.Attr) bool {
		if a.Key == "component" || a.Equal(slog.Attr{}) {
			return true
		}
		extra = append(extra, a.Key+"="+a.Value.Resolve().String())
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		a.Key = h.prefix + a.Key
		return add(a)
	})

	style := h.style(rec.Level)
	var b strings.Builder
	lines := strings.Split(rec.Message, "\n")
	for i, line := range lines {
		b.WriteString(h.render(style, line))
		if i == 0 && len(extra) > 0 {
			b.WriteString(" ")
			b.WriteString(h.render(h.r.NewStyle().Faint(true), strings.Join(extra, " ")))
		}
		b.WriteString("\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func (h *PrettyHandler) render(style lipgloss.Style, s string) string {
	if !h.color || s == "" {
		return s
	}
	return style.Render(s)
}

func (h *PrettyHandler) style(l slog.Level) lipgloss.Style {
	s := h.r.NewStyle()
	switch {
	case l >= LevelCritical:
		return s.Foreground(lipgloss.Color("196")).Bold(true)
	case l >= slog.LevelError:
		return s.Foreground(lipgloss.Color("160"))
	case l >= slog.LevelWarn:
		return s.Foreground(lipgloss.Color("214"))
	case l >= slog.LevelInfo:
		return s
	default:
		return s.Foreground(lipgloss.Color("241"))
	}
}
