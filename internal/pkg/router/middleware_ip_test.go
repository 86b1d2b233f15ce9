package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProxyList_Resolve(t *testing.T) {
	proxies := parseProxies([]string{"10.0.0.0/8", "127.0.0.1", "not-an-ip", ""})

	tests := []struct {
		name   string
		remote string
		xff    string
		xrip   string
		want   string
	}{
		{name: "direct client", remote: "203.0.113.9:5123", want: "203.0.113.9"},
		{name: "untrusted peer cannot spoof", remote: "203.0.113.9:5123", xff: "1.2.3.4", want: "203.0.113.9"},
		{name: "single trusted hop", remote: "10.1.2.3:80", xff: "198.51.100.7", want: "198.51.100.7"},
		{name: "skips trusted hops right to left", remote: "127.0.0.1:80", xff: "6.6.6.6, 198.51.100.7, 10.0.0.5", want: "198.51.100.7"},
		{name: "real ip header", remote: "10.1.2.3:80", xrip: "198.51.100.8", want: "198.51.100.8"},
		{name: "garbage hop stops the walk", remote: "10.1.2.3:80", xff: "junk", want: "10.1.2.3"},
		{name: "mapped v4 peer", remote: "[::ffff:10.0.0.1]:80", xff: "198.51.100.9", want: "198.51.100.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xrip != "" {
				req.Header.Set("X-Real-IP", tt.xrip)
			}

			assert.Equal(t, tt.want, proxies.resolve(req))
		})
	}
}

func TestParseProxies(t *testing.T) {
	got := parseProxies([]string{"192.168.1.7/16", "::1", "bogus"})

	if assert.Len(t, got, 2) {
		assert.Equal(t, "192.168.0.0/16", got[0].String())
		assert.Equal(t, "::1/128", got[1].String())
	}
}
