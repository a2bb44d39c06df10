package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	c, err := ParseConfig([]byte("broker:\n  name: angel\n  user: u1\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if c.Credentials.Source != "static" {
		t.Errorf("credentials.source = %q, want static", c.Credentials.Source)
	}
	if c.Audit.Sink != "file" || c.Audit.QueueSize != 256 {
		t.Errorf("audit defaults = %+v", c.Audit)
	}
	if c.Reconcile.Lock != "local" {
		t.Errorf("reconcile.lock = %q, want local", c.Reconcile.Lock)
	}
	if len(c.Events.Sinks) != 1 || c.Events.Sinks[0] != "log" {
		t.Errorf("events.sinks = %v, want [log]", c.Events.Sinks)
	}
	if c.Timeout().Seconds() != 10 {
		t.Errorf("Timeout() = %v, want 10s", c.Timeout())
	}
	if c.SquareOff.Strict {
		t.Error("squareoff.strict should default to false")
	}
}

func TestParseConfigExpandsEnv(t *testing.T) {
	t.Setenv("GW_TEST_TOKEN", "tok-123")
	yml := `
broker: {name: zerodha, user: u1}
credentials:
  users:
    u1: {auth_token: "${GW_TEST_TOKEN}", api_key: plain}
`
	c, err := ParseConfig([]byte(yml))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	u := c.Credentials.Users["u1"]
	if u.AuthToken != "tok-123" {
		t.Errorf("auth_token = %q, want tok-123", u.AuthToken)
	}
	if u.APIKey != "plain" {
		t.Errorf("api_key = %q, want plain", u.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"missing broker", "broker: {user: u}", "broker.name"},
		{"missing user", "broker: {name: angel}", "broker.user"},
		{"bad audit sink", "broker: {name: angel, user: u}\naudit: {sink: s3}", "audit.sink"},
		{"postgres without dsn", "broker: {name: angel, user: u}\naudit: {sink: postgres}", "audit.dsn"},
		{"unknown event sink", "broker: {name: angel, user: u}\nevents: {sinks: [kafka]}", "events.sinks"},
		{"redis lock without addr", "broker: {name: angel, user: u}\nreconcile: {lock: redis}", "redis.addr"},
	}
	for _, tt := range tests {
		_, err := ParseConfig([]byte(tt.yml))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("broker: {name: compositedge, user: u}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Broker.Name != "compositedge" {
		t.Errorf("broker.name = %q", c.Broker.Name)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
