package eventstream

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// TargetsParam is the query parameter the controller reads the subscribed
// event names from.
const TargetsParam = "targets"

// BuildTarget returns the stream URL for the given subscription set. Each name
// is URL-encoded and the results are joined with commas; an empty set leaves
// the query off so the device sends its default stream.
func BuildTarget(base string, names []string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported stream url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("stream url %q has no host", base)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if len(names) == 0 {
		return u.String(), nil
	}
	enc := make([]string, len(names))
	for i, n := range names {
		enc[i] = escapeName(n)
	}
	return u.String() + "?" + TargetsParam + "=" + strings.Join(enc, ","), nil
}

// BaseURL returns the stream URL of a controller reachable at host. The
// default SSE port is added when host carries none.
func BaseURL(host string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(DefaultPort))
	}
	return "http://" + host + DefaultPath
}

// escapeName percent-encodes a name the way browsers' encodeURIComponent does,
// so spaces become %20 rather than '+'.
func escapeName(n string) string {
	return strings.ReplaceAll(url.QueryEscape(n), "+", "%20")
}
