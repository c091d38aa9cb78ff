// Package linesensor decodes line_sensor.v1 event payloads into bit rows.
package linesensor

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"rgbctl/pkg/types"
)

// Bit orders understood by BitRows.
const (
	MSB = "msb"
	LSB = "lsb"
)

// RowSeparator joins rendered rows.
const RowSeparator = " | "

// SchemaError reports a payload that is not a line-sensor event.
type SchemaError struct {
	Schema string
}

func (e SchemaError) Error() string {
	if e.Schema == "" {
		return "linesensor: missing schema"
	}
	return fmt.Sprintf("linesensor: unsupported schema %q", e.Schema)
}

// IsSchemaError reports whether err is a SchemaError.
func IsSchemaError(err error) bool {
	var se SchemaError
	return errors.As(err, &se)
}

var errNoBytes = errors.New("linesensor: payload carries neither data_b64 nor hex data")

// Frame is one decoded line-sensor reading.
type Frame struct {
	Source   string
	Time     int64
	BitOrder string
	Bytes    []byte
}

// Decode extracts a Frame from a decoded event payload. Bytes come from
// data_b64, falling back to the hex data field.
func Decode(p map[string]any) (Frame, error) {
	schema, _ := p["schema"].(string)
	if schema != types.LineSensorSchema {
		return Frame{}, SchemaError{Schema: schema}
	}
	f := Frame{BitOrder: MSB}
	f.Source, _ = p["source"].(string)
	if t, ok := p["time"].(float64); ok {
		f.Time = int64(t)
	}
	if bo, ok := p["bit_order"].(string); ok && strings.EqualFold(bo, LSB) {
		f.BitOrder = LSB
	}

	var err error
	if b64, ok := p["data_b64"].(string); ok && b64 != "" {
		f.Bytes, err = base64.StdEncoding.DecodeString(b64)
		if err == nil {
			return f.clip(p), nil
		}
	}
	if data, ok := p["data"].(string); ok && data != "" {
		f.Bytes, err = ParseHex(data)
		if err != nil {
			return Frame{}, fmt.Errorf("linesensor: decode data: %w", err)
		}
		return f.clip(p), nil
	}
	if err != nil {
		return Frame{}, fmt.Errorf("linesensor: decode data_b64: %w", err)
	}
	return Frame{}, errNoBytes
}

// clip trims Bytes to byte_count when the payload declares a shorter one.
func (f Frame) clip(p map[string]any) Frame {
	if n, ok := p["byte_count"].(float64); ok && n >= 0 && int(n) < len(f.Bytes) {
		f.Bytes = f.Bytes[:int(n)]
	}
	return f
}

// ParseHex parses space separated hex bytes such as "0F A0".
func ParseHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}

// BitRows expands each byte into eight 0/1 cells. With MSB the most
// significant bit comes first; any other order is treated as LSB first.
func BitRows(b []byte, order string) [][8]uint8 {
	rows := make([][8]uint8, len(b))
	for i, v := range b {
		for bit := 0; bit < 8; bit++ {
			idx := bit
			if order == MSB {
				idx = 7 - bit
			}
			rows[i][bit] = (v >> idx) & 1
		}
	}
	return rows
}

// RowsString renders rows as "00001111 | 10100000".
func RowsString(rows [][8]uint8) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		var sb strings.Builder
		for _, x := range r {
			if x != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		parts[i] = sb.String()
	}
	return strings.Join(parts, RowSeparator)
}

// Rows returns the frame's bit rows in its declared order.
func (f Frame) Rows() [][8]uint8 { return BitRows(f.Bytes, f.BitOrder) }

func (f Frame) String() string { return RowsString(f.Rows()) }
