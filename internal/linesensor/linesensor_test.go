package linesensor

import (
	"bytes"
	"testing"
)

func TestBitRows(t *testing.T) {
	msb := RowsString(BitRows([]byte{0x0F, 0xA0}, MSB))
	if msb != "00001111 | 10100000" {
		t.Fatalf("msb = %q", msb)
	}
	lsb := RowsString(BitRows([]byte{0x0F, 0xA0}, LSB))
	if lsb != "11110000 | 00000101" {
		t.Fatalf("lsb = %q", lsb)
	}
	if RowsString(BitRows(nil, MSB)) != "" {
		t.Fatal("empty input should render empty")
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		want    []byte
		order   string
	}{
		{
			name:    "base64",
			payload: map[string]any{"schema": "line_sensor.v1", "data_b64": "D6A=", "data": "FF FF", "byte_count": 2.0},
			want:    []byte{0x0F, 0xA0},
			order:   MSB,
		},
		{
			name:    "hex fallback",
			payload: map[string]any{"schema": "line_sensor.v1", "data": "0f a0", "bit_order": "lsb"},
			want:    []byte{0x0F, 0xA0},
			order:   LSB,
		},
		{
			name:    "bad base64 falls back to hex",
			payload: map[string]any{"schema": "line_sensor.v1", "data_b64": "!!", "data": "01"},
			want:    []byte{0x01},
			order:   MSB,
		},
		{
			name:    "byte_count clips",
			payload: map[string]any{"schema": "line_sensor.v1", "data": "01 02 03", "byte_count": 1.0},
			want:    []byte{0x01},
			order:   MSB,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode(tc.payload)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(f.Bytes, tc.want) || f.BitOrder != tc.order {
				t.Fatalf("frame = %+v", f)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode(map[string]any{"msg": "hello"}); !IsSchemaError(err) {
		t.Fatalf("missing schema: %v", err)
	}
	if _, err := Decode(map[string]any{"schema": "line_sensor.v2", "data": "01"}); !IsSchemaError(err) {
		t.Fatalf("wrong schema: %v", err)
	}
	if _, err := Decode(map[string]any{"schema": "line_sensor.v1"}); err == nil || IsSchemaError(err) {
		t.Fatalf("no bytes: %v", err)
	}
	if _, err := Decode(map[string]any{"schema": "line_sensor.v1", "data": "zz"}); err == nil {
		t.Fatal("bad hex should fail")
	}
	if _, err := Decode(map[string]any{"schema": "line_sensor.v1", "data_b64": "!!"}); err == nil {
		t.Fatal("bad base64 without hex should fail")
	}
}

func TestFrameString(t *testing.T) {
	f, err := Decode(map[string]any{"schema": "line_sensor.v1", "data": "80 01", "source": "i2c_line", "time": 1500.0})
	if err != nil {
		t.Fatal(err)
	}
	if f.String() != "10000000 | 00000001" || f.Source != "i2c_line" || f.Time != 1500 {
		t.Fatalf("frame = %+v %q", f, f.String())
	}
}
