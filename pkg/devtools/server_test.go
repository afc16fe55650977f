package devtools

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/treeline-dev/treeline/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInspectorEndpoints(t *testing.T) {
	e := state.New()
	e.Set("user.name", "ada")

	srv := New(e, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/store")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	var tree map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		t.Fatalf("decode store: %v", err)
	}
	resp.Body.Close()
	user, ok := tree["user"].(map[string]any)
	if !ok || user["name"] != "ada" {
		t.Errorf("store view = %v", tree)
	}

	resp, err = http.Get(ts.URL + "/api/paths")
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	var paths []string
	if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
		t.Fatalf("decode paths: %v", err)
	}
	resp.Body.Close()
	found := false
	for _, p := range paths {
		if p == "user.name" {
			found = true
		}
	}
	if !found {
		t.Errorf("paths = %v, missing user.name", paths)
	}
}

func TestHubBroadcastDropsWhenFull(t *testing.T) {
	h := newHub(testLogger())

	// No clients connected: broadcasting must not block or panic.
	h.MutationCommitted("a.b", 1)
	h.FlushEnd(1, 2, 0)
	h.BatchDiverged(3)
}

func TestConfigDefaults(t *testing.T) {
	srv := New(state.New(), &Config{Address: "127.0.0.1:0"})
	if srv.config.ReadTimeout == 0 || srv.config.WriteTimeout == 0 {
		t.Error("partial config should be backfilled with defaults")
	}
	if srv.config.Address != "127.0.0.1:0" {
		t.Errorf("address = %q", srv.config.Address)
	}
}
