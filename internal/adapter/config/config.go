// Package config loads the YAML subscription/address-space manifest this
// service seeds itself from at startup: the initial Nodes an AddressSpace
// exposes and the Subscriptions a session should pre-create against them.
// Process-level configuration (HTTP port, logging, Publish Engine tuning)
// is handled separately by viper in cmd/subscriptiond.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envBracePattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvBraces expands only ${VAR} and ${VAR:default} patterns, leaving
// any other use of '$' untouched.
func expandEnvBraces(s string) string {
	return envBracePattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envBracePattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// Manifest is the complete seed configuration: the nodes an AddressSpace
// should expose and the subscriptions a session should pre-create.
type Manifest struct {
	Nodes         []NodeConfig         `yaml:"nodes"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// NodeConfig describes one address-space node to seed (spec.md §3 Node).
type NodeConfig struct {
	NodeID                  string  `yaml:"node_id"`
	NodeClass               string  `yaml:"node_class"` // "Variable" or "Object"
	MinimumSamplingInterval float64 `yaml:"minimum_sampling_interval"`
}

// SubscriptionConfig describes one subscription to pre-create on startup.
type SubscriptionConfig struct {
	SessionID                  string  `yaml:"session_id"`
	Priority                   int     `yaml:"priority"`
	PublishingInterval         float64 `yaml:"publishing_interval_ms"`
	MaxKeepAliveCount          uint32  `yaml:"max_keep_alive_count"`
	LifeTimeCount              uint32  `yaml:"life_time_count"`
	MaxNotificationsPerPublish uint32  `yaml:"max_notifications_per_publish"`
	PublishingEnabled          bool    `yaml:"publishing_enabled"`
}

// Load reads, expands and parses the manifest at path. A missing file is not
// an error: an empty Manifest is returned so a fresh deployment can start
// with no pre-seeded nodes or subscriptions.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("config: read manifest: %w", err)
	}

	expanded := expandEnvBraces(string(data))

	var m Manifest
	if err := yaml.Unmarshal([]byte(expanded), &m); err != nil {
		return nil, fmt.Errorf("config: parse manifest: %w", err)
	}

	applyDefaults(&m)

	if err := validate(&m); err != nil {
		return nil, fmt.Errorf("config: invalid manifest: %w", err)
	}

	return &m, nil
}

func applyDefaults(m *Manifest) {
	for i := range m.Subscriptions {
		sub := &m.Subscriptions[i]
		if sub.PublishingInterval == 0 {
			sub.PublishingInterval = 1000
		}
		if sub.MaxKeepAliveCount == 0 {
			sub.MaxKeepAliveCount = 10
		}
		if sub.MaxNotificationsPerPublish == 0 {
			sub.MaxNotificationsPerPublish = 1000
		}
	}
	for i := range m.Nodes {
		node := &m.Nodes[i]
		if node.NodeClass == "" {
			node.NodeClass = "Variable"
		}
		if node.MinimumSamplingInterval == 0 {
			node.MinimumSamplingInterval = 100
		}
	}
}

func validate(m *Manifest) error {
	seen := make(map[string]bool, len(m.Nodes))
	for _, node := range m.Nodes {
		if node.NodeID == "" {
			return fmt.Errorf("node missing node_id")
		}
		if seen[node.NodeID] {
			return fmt.Errorf("duplicate node_id %q", node.NodeID)
		}
		seen[node.NodeID] = true
		if node.NodeClass != "Variable" && node.NodeClass != "Object" {
			return fmt.Errorf("node %q: unrecognised node_class %q", node.NodeID, node.NodeClass)
		}
	}
	for _, sub := range m.Subscriptions {
		if sub.SessionID == "" {
			return fmt.Errorf("subscription missing session_id")
		}
	}
	return nil
}

// PublishingIntervalDuration is a convenience conversion for callers that
// need a time.Duration rather than the raw millisecond float.
func (s SubscriptionConfig) PublishingIntervalDuration() time.Duration {
	return time.Duration(s.PublishingInterval * float64(time.Millisecond))
}
