package eventstream

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultEvent is the name of frames sent without an "event:" field.
const DefaultEvent = "message"

// maxLineBytes bounds a single line of the stream.
const maxLineBytes = 1 << 20

// Frame is a single server-sent event.
type Frame struct {
	// Event is the value of the "event:" field. Empty for data-only frames.
	Event string
	// Data holds the "data:" lines joined with newlines.
	Data string
	// ID is the value of the "id:" field.
	ID string
	// Retry is the reconnection time the server asked for, zero if absent.
	Retry time.Duration
}

// Name returns the event name used for dispatch.
func (f *Frame) Name() string {
	if f.Event == "" {
		return DefaultEvent
	}
	return f.Event
}

// Reader reads frames from a text/event-stream body.
type Reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// NewReader creates a frame reader over body.
func NewReader(body io.ReadCloser) *Reader {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	sc.Split(newLineSplitter())
	return &Reader{scanner: sc, body: body}
}

// newLineSplitter returns a split function that ends lines at CRLF, LF or a
// bare CR. A CR is reported as soon as it arrives; an LF that follows it in a
// later read is skipped.
func newLineSplitter() bufio.SplitFunc {
	var skipLF bool
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if skipLF && len(data) > 0 {
			skipLF = false
			if data[0] == '\n' {
				return 1, nil, nil
			}
		}
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			if data[i] == '\n' {
				return i + 1, data[:i], nil
			}
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else {
				skipLF = true
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

// Next returns the next frame. Returns io.EOF when the stream ends; a frame
// cut off before its blank line is discarded.
func (r *Reader) Next() (*Frame, error) {
	var f Frame
	var hasData bool

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// a blank line ends the frame
		if line == "" {
			if hasData {
				return &f, nil
			}
			f = Frame{ID: f.ID}
			continue
		}
		// comments, including the device's ": keepalive"
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				f.Data += "\n" + value
			} else {
				f.Data = value
				hasData = true
			}
		case "event":
			f.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				f.ID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				f.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the underlying body.
func (r *Reader) Close() error {
	return r.body.Close()
}

// parseLine splits a line into field and value, dropping one leading space
// from the value.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
