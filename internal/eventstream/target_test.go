package eventstream

import "testing"

func TestBuildTarget(t *testing.T) {
	const base = "http://192.168.4.1:9090/sse"
	tests := []struct {
		name  string
		base  string
		names []string
		want  string
	}{
		{"empty set", base, nil, base},
		{"single", base, []string{"console"}, base + "?targets=console"},
		{"keeps order", base, []string{"line_sensor", "console"}, base + "?targets=line_sensor,console"},
		{"escapes names", base, []string{"a b", "x,y", "p&q"}, base + "?targets=a%20b,x%2Cy,p%26q"},
		{"drops existing query", base + "?targets=old#frag", []string{"sse"}, base + "?targets=sse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildTarget(tt.base, tt.names)
			if err != nil {
				t.Fatalf("BuildTarget: %v", err)
			}
			if got != tt.want {
				t.Fatalf("BuildTarget = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildTarget_Invalid(t *testing.T) {
	for _, base := range []string{"://nope", "ftp://host/sse", "http:///sse", ""} {
		if _, err := BuildTarget(base, []string{"console"}); err == nil {
			t.Errorf("BuildTarget(%q) expected error", base)
		}
	}
}

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"192.168.4.1":      "http://192.168.4.1:9090/sse",
		"192.168.4.1:8080": "http://192.168.4.1:8080/sse",
		"rgb.local":        "http://rgb.local:9090/sse",
		"::1":              "http://[::1]:9090/sse",
	}
	for in, want := range cases {
		if got := BaseURL(in); got != want {
			t.Errorf("BaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
