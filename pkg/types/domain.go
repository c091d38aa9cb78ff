package types

// Known event targets. Devices multiplex every source over one stream and
// route it to one of these names.
const (
	TargetConsole    = "console"
	TargetLineSensor = "line_sensor"
	TargetSSE        = "sse"
)

// KnownTargets lists the event names a device understands, in mask order.
var KnownTargets = []string{TargetConsole, TargetLineSensor, TargetSSE}

// LineSensorSchema identifies line-sensor payloads.
const LineSensorSchema = "line_sensor.v1"

// MaxLineSensorBytes caps the bytes carried by one line-sensor event.
const MaxLineSensorBytes = 32

// DeviceEvent is the JSON envelope carried in the data field of every event
// a device emits.
type DeviceEvent struct {
	// Producer of the event (e.g. wifi, i2c_line, console).
	// example: i2c_line
	Source string `json:"source" example:"i2c_line"`
	// Severity.
	// example: info
	Level string `json:"level" example:"info"`
	// Milliseconds since device boot.
	// example: 15342
	Time int64 `json:"time" example:"15342"`
	// Raw text, or hex bytes for line-sensor sources.
	// example: 0F A0
	Data string `json:"data" example:"0F A0"`
	// Human readable message; equal to Data unless the producer overrides it.
	// example: 0F A0
	Msg string `json:"msg" example:"0F A0"`

	// Line-sensor extensions.
	DataB64   string `json:"data_b64,omitempty" example:"D6A="`
	Schema    string `json:"schema,omitempty" example:"line_sensor.v1"`
	ByteCount int    `json:"byte_count,omitempty" example:"2"`
	BitOrder  string `json:"bit_order,omitempty" example:"msb"`
}

// IsLineSensor reports whether the event carries line-sensor bytes.
func (e DeviceEvent) IsLineSensor() bool { return e.Schema == LineSensorSchema }
