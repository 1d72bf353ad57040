package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPResolution(t *testing.T) {
	proxies, err := NewTrustedProxies([]string{"172.16.0.0/12", " 192.0.2.1 ", ""})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}

	cases := []struct {
		name    string
		remote  string
		headers map[string]string
		proxies *TrustedProxies
		want    string
	}{
		{
			name:    "untrusted peer ignores forwarding headers",
			remote:  "198.51.100.10:4431",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "203.0.113.6"},
			proxies: proxies,
			want:    "198.51.100.10",
		},
		{
			name:    "no proxies configured",
			remote:  "172.16.0.9:80",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5"},
			want:    "172.16.0.9",
		},
		{
			name:    "single hop behind proxy",
			remote:  "172.16.3.4:80",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5"},
			proxies: proxies,
			want:    "203.0.113.5",
		},
		{
			name:    "spoofed leftmost entry is skipped",
			remote:  "192.0.2.1:80",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.9, 172.20.0.1"},
			proxies: proxies,
			want:    "203.0.113.9",
		},
		{
			name:    "garbage forwarded header falls back to real ip",
			remote:  "172.16.3.4:80",
			headers: map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "203.0.113.7"},
			proxies: proxies,
			want:    "203.0.113.7",
		},
		{
			name:    "ipv6 peer",
			remote:  "[2001:db8::1]:443",
			proxies: proxies,
			want:    "2001:db8::1",
		},
		{
			name:   "unparseable remote addr is returned as is",
			remote: "pipe",
			want:   "pipe",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/admin/login", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req, tc.proxies); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxiesRejectsGarbage(t *testing.T) {
	for _, entry := range []string{"10.0.0.0/99", "not-an-ip"} {
		if _, err := NewTrustedProxies([]string{entry}); err == nil {
			t.Fatalf("expected error for %q", entry)
		}
	}
	got, err := NewTrustedProxies([]string{" ", ""})
	if err != nil || got != nil {
		t.Fatalf("blank entries = %v, %v; want nil, nil", got, err)
	}
}
