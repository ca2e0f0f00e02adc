// Package engineconfig loads the classification engine's runtime
// configuration from YAML with environment overrides for deployment knobs.
package engineconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the engine's effective runtime configuration.
type Config struct {
	AdminAddress  string
	AllowedDenoms []string
	TestMode      bool

	ListenAddress string
	RPCToken      string
	RateLimitRPS  float64
	RateBurst     int

	RegistrySnapshotPath   string
	AttributesSnapshotPath string
}

func DefaultConfig() Config {
	return Config{
		ListenAddress: "127.0.0.1:8545",
		RateLimitRPS:  20,
		RateBurst:     40,
	}
}

type fileConfig struct {
	Engine  engineSection  `yaml:"engine"`
	Server  serverSection  `yaml:"server"`
	Storage storageSection `yaml:"storage"`
}

type engineSection struct {
	AdminAddress  string   `yaml:"adminAddress"`
	AllowedDenoms []string `yaml:"allowedDenoms"`
	TestMode      *bool    `yaml:"testMode"`
}

type serverSection struct {
	ListenAddress string   `yaml:"listenAddress"`
	RateLimitRPS  *float64 `yaml:"rateLimitRPS"`
	RateBurst     *int     `yaml:"rateBurst"`
}

type storageSection struct {
	RegistryPath   string `yaml:"registryPath"`
	AttributesPath string `yaml:"attributesPath"`
}

// LoadFromPath reads the YAML config at configPath, falling back to the
// conventional locations when none is given, then applies environment
// overrides. A missing file is not an error; defaults apply.
func LoadFromPath(configPath string) Config {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/classifyd.yaml",
			"/etc/classifyd/config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merged := cfg
		Merge(&merged, parsed)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src fileConfig) {
	if src.Engine.AdminAddress != "" {
		dst.AdminAddress = src.Engine.AdminAddress
	}
	if src.Engine.AllowedDenoms != nil {
		dst.AllowedDenoms = src.Engine.AllowedDenoms
	}
	if src.Engine.TestMode != nil {
		dst.TestMode = *src.Engine.TestMode
	}
	if src.Server.ListenAddress != "" {
		dst.ListenAddress = src.Server.ListenAddress
	}
	if src.Server.RateLimitRPS != nil {
		dst.RateLimitRPS = *src.Server.RateLimitRPS
	}
	if src.Server.RateBurst != nil {
		dst.RateBurst = *src.Server.RateBurst
	}
	if src.Storage.RegistryPath != "" {
		dst.RegistrySnapshotPath = src.Storage.RegistryPath
	}
	if src.Storage.AttributesPath != "" {
		dst.AttributesSnapshotPath = src.Storage.AttributesPath
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_ADMIN_ADDRESS")); v != "" {
		cfg.AdminAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_ALLOWED_DENOMS")); v != "" {
		parts := strings.Split(v, ",")
		denoms := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				denoms = append(denoms, p)
			}
		}
		cfg.AllowedDenoms = denoms
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_TEST_MODE")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.TestMode = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_LISTEN_ADDRESS")); v != "" {
		cfg.ListenAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_RPC_TOKEN")); v != "" {
		cfg.RPCToken = v
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_REGISTRY_PATH")); v != "" {
		cfg.RegistrySnapshotPath = v
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_ATTRIBUTES_PATH")); v != "" {
		cfg.AttributesSnapshotPath = v
	}
}

// Validate checks the knobs the engine cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AdminAddress) == "" {
		return fmt.Errorf("engine.adminAddress is required")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("server.rateLimitRPS must be positive")
	}
	if c.RateBurst <= 0 {
		return fmt.Errorf("server.rateBurst must be positive")
	}
	return nil
}
