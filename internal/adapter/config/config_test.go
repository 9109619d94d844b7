package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsEmptyManifest(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected a missing manifest to not be an error, got %v", err)
	}
	if len(m.Nodes) != 0 || len(m.Subscriptions) != 0 {
		t.Fatal("expected an empty manifest for a missing file")
	}
}

func TestLoad_AppliesDefaultsAndExpandsEnv(t *testing.T) {
	os.Setenv("TEST_SESSION_ID", "session-from-env")
	defer os.Unsetenv("TEST_SESSION_ID")

	path := filepath.Join(t.TempDir(), "manifest.yaml")
	contents := `
nodes:
  - node_id: "ns=1;s=Temperature"
subscriptions:
  - session_id: "${TEST_SESSION_ID}"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test manifest: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading manifest: %v", err)
	}

	if len(m.Nodes) != 1 || m.Nodes[0].NodeClass != "Variable" {
		t.Fatalf("expected node_class to default to Variable, got %+v", m.Nodes)
	}
	if m.Nodes[0].MinimumSamplingInterval != 100 {
		t.Fatalf("expected minimum_sampling_interval to default to 100, got %v", m.Nodes[0].MinimumSamplingInterval)
	}

	if len(m.Subscriptions) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(m.Subscriptions))
	}
	sub := m.Subscriptions[0]
	if sub.SessionID != "session-from-env" {
		t.Fatalf("expected ${TEST_SESSION_ID} to expand, got %q", sub.SessionID)
	}
	if sub.PublishingInterval != 1000 || sub.MaxKeepAliveCount != 10 || sub.MaxNotificationsPerPublish != 1000 {
		t.Fatalf("expected subscription defaults applied, got %+v", sub)
	}
}

func TestLoad_RejectsDuplicateNodeID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	contents := `
nodes:
  - node_id: "ns=1;s=A"
  - node_id: "ns=1;s=A"
`
	os.WriteFile(path, []byte(contents), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading a manifest with a duplicate node_id")
	}
}

func TestLoad_RejectsUnknownNodeClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	contents := `
nodes:
  - node_id: "ns=1;s=A"
    node_class: "Method"
`
	os.WriteFile(path, []byte(contents), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading a manifest with an unrecognised node_class")
	}
}

func TestLoad_RejectsSubscriptionMissingSessionID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	contents := `
subscriptions:
  - priority: 1
`
	os.WriteFile(path, []byte(contents), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading a subscription with no session_id")
	}
}

func TestExpandEnvBraces_UsesDefaultWhenUnset(t *testing.T) {
	os.Unsetenv("TEST_UNSET_VAR")
	got := expandEnvBraces("value: ${TEST_UNSET_VAR:fallback}")
	if got != "value: fallback" {
		t.Fatalf("expected the default value to be used, got %q", got)
	}
}
