package devsim

import (
	"encoding/json"
	"errors"
	"net/http"

	"rgbctl/pkg/types"
)

// UnknownTargetError is returned when publishing under a name the device
// does not route.
type UnknownTargetError struct {
	Target string
}

func (e UnknownTargetError) Error() string { return "unknown target: " + e.Target }

// IsUnknownTarget reports whether err is an UnknownTargetError.
func IsUnknownTarget(err error) bool {
	var ute UnknownTargetError
	return errors.As(err, &ute)
}

var errHubClosed = errors.New("hub closed")

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
