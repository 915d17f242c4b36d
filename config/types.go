package config

// NodeConfig holds the node configuration from node.yml
type NodeConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	BootstrapPeers []string `yaml:"bootstrap_peers"`
	EnableMdns     bool     `yaml:"mdns"`
	MetricsAddr    string   `yaml:"metrics_addr"`
}

// ConfigFile is the top-level structure for node.yml
type ConfigFile struct {
	Config NodeConfig `yaml:"config"`
}

// PowConfig bounds and paces the nonce search, from the [pow] section of
// pow.ini
type PowConfig struct {
	MaxAttempts   uint64 `ini:"max_attempts"`
	ProgressEvery uint64 `ini:"progress_every"`
}
