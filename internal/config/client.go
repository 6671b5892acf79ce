package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfigはCLI（storefront）の設定
type ClientConfig struct {
	APIBase   string        `yaml:"api_base"`   // REST のベースURL
	MediaBase string        `yaml:"media_base"` // 相対メディアURLの解決先
	StatePath string        `yaml:"state_path"` // トークン・匿名IDなどの保存先
	Timeout   time.Duration `yaml:"timeout"`    // 1リクエストのタイムアウト

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaultClient() ClientConfig {
	state := ".storefront/state.yaml"
	if home, err := os.UserHomeDir(); err == nil {
		state = filepath.Join(home, ".storefront", "state.yaml")
	}
	return ClientConfig{
		APIBase:   "http://127.0.0.1:8000/api",
		MediaBase: "http://127.0.0.1:8000",
		StatePath: state,
		Timeout:   15 * time.Second,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadClientは 既定値 → YAML（path か STOREFRONT_CONFIG）→ 環境変数 の順に上書きする
func LoadClient(path string) (ClientConfig, error) {
	cfg := defaultClient()

	if path == "" {
		path = os.Getenv("STOREFRONT_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return ClientConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	setString(&cfg.APIBase, "STOREFRONT_API_BASE")
	setString(&cfg.MediaBase, "STOREFRONT_MEDIA_BASE")
	setString(&cfg.StatePath, "STOREFRONT_STATE_PATH")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	if v := os.Getenv("STOREFRONT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("STOREFRONT_TIMEOUT must be duration: %w", err)
		}
		cfg.Timeout = d
	}

	//必須チェック
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.APIBase == "" {
		return ClientConfig{}, fmt.Errorf("STOREFRONT_API_BASE is required")
	}
	if cfg.Timeout <= 0 {
		return ClientConfig{}, fmt.Errorf("STOREFRONT_TIMEOUT must be positive")
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
