// Package console renders device console events to a terminal.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	// MaxLines bounds the history kept for Dump.
	MaxLines = 2000
	// MaxPaused bounds lines held back while paused; the oldest are dropped.
	MaxPaused = 500
)

// Line is one console entry.
type Line struct {
	Time  string
	Level string
	Msg   string
}

// String renders the line the way Dump writes it.
func (l Line) String() string {
	level := l.Level
	if level == "" {
		level = "info"
	}
	return fmt.Sprintf("%s %s: %s", l.Time, level, l.Msg)
}

type styles struct {
	ts, info, warn, err lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		ts:   r.NewStyle().Foreground(lipgloss.Color("8")),
		info: r.NewStyle(),
		warn: r.NewStyle().Foreground(lipgloss.Color("11")),
		err:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

// Sink formats console events onto a writer.
type Sink struct {
	out    io.Writer
	styles styles
	now    func() time.Time

	mu      sync.Mutex
	history []Line
	held    []Line
	paused  bool
}

// New returns a sink writing to out. Colors follow out's terminal
// capabilities.
func New(out io.Writer) *Sink {
	return &Sink{
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out)),
		now:    time.Now,
	}
}

// Handle formats a decoded console payload and adds it.
func (s *Sink) Handle(p map[string]any) {
	s.Add(LineFrom(p, s.now()))
}

// Add records l and writes it unless the sink is paused.
func (s *Sink) Add(l Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, l)
	if len(s.history) > MaxLines {
		s.history = s.history[len(s.history)-MaxLines:]
	}
	if s.paused {
		s.held = append(s.held, l)
		if len(s.held) > MaxPaused {
			s.held = s.held[len(s.held)-MaxPaused:]
		}
		return
	}
	s.writeLocked(l)
}

func (s *Sink) writeLocked(l Line) {
	st := s.styles.info
	switch l.Level {
	case "error":
		st = s.styles.err
	case "warn":
		st = s.styles.warn
	}
	fmt.Fprintf(s.out, "%s %s\n", s.styles.ts.Render(l.Time), st.Render(l.Msg))
}

// Pause holds back output until Resume.
func (s *Sink) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume writes the held lines and continues live output.
func (s *Sink) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	for _, l := range s.held {
		s.writeLocked(l)
	}
	s.held = nil
}

// Paused reports whether output is held back.
func (s *Sink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Clear forgets the history and any held lines.
func (s *Sink) Clear() {
	s.mu.Lock()
	s.history = nil
	s.held = nil
	s.mu.Unlock()
}

// Lines returns a copy of the history, oldest first.
func (s *Sink) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.history...)
}

// Dump writes the history as plain "time level: msg" lines.
func (s *Sink) Dump(w io.Writer) error {
	for _, l := range s.Lines() {
		if _, err := io.WriteString(w, l.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// LineFrom builds a Line from an event payload. A payload without msg is
// shown as its JSON encoding.
func LineFrom(p map[string]any, now time.Time) Line {
	l := Line{Time: formatTime(p["time"], now)}
	l.Level, _ = p["level"].(string)
	if msg, ok := p["msg"].(string); ok && msg != "" {
		l.Msg = msg
	} else if b, err := json.Marshal(p); err == nil {
		l.Msg = string(b)
	}
	l.Msg = strings.TrimRight(l.Msg, "\r\n")
	return l
}

// formatTime renders device uptime milliseconds as hh:mm:ss.mmm, an RFC 3339
// stamp as local wall time, and anything else as the current time.
func formatTime(v any, now time.Time) string {
	switch t := v.(type) {
	case float64:
		d := time.Duration(t) * time.Millisecond
		h := int(d / time.Hour)
		m := int(d/time.Minute) % 60
		sec := int(d/time.Second) % 60
		ms := int(d/time.Millisecond) % 1000
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, sec, ms)
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.Local().Format("15:04:05")
		}
	}
	return now.Format("15:04:05")
}
