package config

import (
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"nanochain/logx"
)

// DefaultNodeConfig returns the configuration used when no node.yml exists:
// an ephemeral TCP port, mDNS discovery on, no bootstrap peers.
func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		ListenAddr:  DefaultListenAddr,
		EnableMdns:  true,
		MetricsAddr: DefaultMetricsAddr,
	}
}

// LoadNodeConfig reads and parses node.yml. A missing file yields the
// defaults rather than an error so a node can start with zero setup.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logx.Warn("CONFIG", "No config at ", path, ", using defaults")
			return DefaultNodeConfig(), nil
		}
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, err
	}
	cfg := cfgFile.Config
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = DefaultMetricsAddr
	}
	logx.Info("CONFIG", "Loaded node config: listen_addr=", cfg.ListenAddr, ", bootstrap_peers=", len(cfg.BootstrapPeers))
	return &cfg, nil
}

// LoadPowConfig reads the [pow] section from an .ini file. A missing file
// yields the zero config: unbounded search, default progress interval.
func LoadPowConfig(path string) (*PowConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &PowConfig{}, nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	powSection := cfg.Section("pow")
	powCfg := &PowConfig{}
	if err := powSection.MapTo(powCfg); err != nil {
		return nil, err
	}
	return powCfg, nil
}
