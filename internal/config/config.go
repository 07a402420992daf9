package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/pysbridge/pysbridge/internal/credentials"
)

const (
	appName    = "pysbridge"
	configFile = "config.json"
)

type Config struct {
	ListenAddr  string `json:"listen_addr"`
	BridgeID    string `json:"bridge_id"`
	LogLevel    string `json:"log_level"`
	LogJSON     bool   `json:"log_json"`
	OpenBrowser bool   `json:"open_browser"`
	Window      bool   `json:"window"`

	// PairingToken authenticates runtime connections. Sourced from the
	// environment, then the OS keyring, then generated.
	PairingToken string `json:"-"`
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	appDir := filepath.Join(configDir, appName)

	path := filepath.Join(appDir, configFile)
	cfg := Config{
		ListenAddr: "127.0.0.1:0",
		LogLevel:   "info",
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else {
		if err := os.MkdirAll(appDir, 0700); err != nil {
			return nil, err
		}
		out, _ := json.MarshalIndent(cfg, "", "  ")
		_ = os.WriteFile(path, out, 0600)
		log.Printf("Generated new config at: %s", path)
	}

	applyEnvOverrides(&cfg)

	if cfg.PairingToken == "" {
		cfg.PairingToken, err = credentials.LoadAppSecret("pairing_token")
		if err != nil {
			raw := make([]byte, 32)
			if _, err := rand.Read(raw); err != nil {
				return nil, err
			}
			cfg.PairingToken = base64.RawURLEncoding.EncodeToString(raw)
			if err := credentials.StoreAppSecret("pairing_token", cfg.PairingToken); err != nil {
				log.Printf("keyring unavailable, pairing token not persisted: %v", err)
			}
		}
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PYSBRIDGE_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PYSBRIDGE_BRIDGE_ID"); v != "" {
		cfg.BridgeID = v
	}
	if v := os.Getenv("PYSBRIDGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PYSBRIDGE_LOG_JSON"); v != "" {
		cfg.LogJSON = v == "1" || v == "true"
	}
	if v := os.Getenv("PYSBRIDGE_TOKEN"); v != "" {
		cfg.PairingToken = v
	}
	if v := os.Getenv("PYSBRIDGE_OPEN_BROWSER"); v != "" {
		cfg.OpenBrowser = v == "1" || v == "true"
	}
	if v := os.Getenv("PYSBRIDGE_WINDOW"); v != "" {
		cfg.Window = v == "1" || v == "true"
	}
}
