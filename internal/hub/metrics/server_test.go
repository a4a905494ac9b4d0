package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServerEndpoints(t *testing.T) {
	registry := NewRegistry()
	registry.SetSystemInfo("test", "now")
	registry.RecordPost("UserLoggedIn", StatusDelivered, 1, 0)

	srv := httptest.NewServer(newMux(registry))
	defer srv.Close()

	tests := []struct {
		path string
		want string
	}{
		{path: "/health", want: `"status":"healthy"`},
		{path: "/ready", want: `"status":"ready"`},
		{path: "/metrics", want: `hub_post_total{event="UserLoggedIn",status="delivered"} 1`},
		{path: "/metrics", want: `hub_system_info{build_time="now",version="test"} 1`},
	}

	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tt.path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("read %s: %v", tt.path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", tt.path, resp.StatusCode)
		}
		if !strings.Contains(string(body), tt.want) {
			t.Fatalf("GET %s body does not contain %s:\n%s", tt.path, tt.want, body)
		}
	}
}
