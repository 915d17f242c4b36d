package config

import "time"

const (
	DefaultNodeConfigPath = "config/node.yml"
	DefaultPowConfigPath  = "config/pow.ini"

	DefaultListenAddr  = "/ip4/0.0.0.0/tcp/0"
	DefaultMetricsAddr = ":9600"

	// InitSettleDelay is how long a freshly started node waits for discovery
	// before requesting a chain from its peers.
	InitSettleDelay = 1 * time.Second
)
