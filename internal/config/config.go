package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはsandbox（REST API）の設定
type Config struct {
	Port string // サーバーポート（8000）

	DatabaseURL      string // あれば POSTGRES_* より優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	RedisAddr string // 匿名カート
	RedisDB   int

	JWTSecret  string        // JWT署名シークレット
	AccessTTL  time.Duration // access token の有効期限
	RefreshTTL time.Duration // refresh token の有効期限

	MediaRoot  string // アップロード先ディレクトリ
	MediaURL   string // 公開URLの接頭辞（/media/）
	AnonHeader string // 匿名IDのヘッダ名

	TBankBaseURL     string // 空なら端末キーがあっても既定URL
	TBankTerminalKey string // 空ならローカル決済
	TBankPassword    string
	PaySuccessURL    string
	PayFailURL       string

	LogLevel  string
	LogFormat string
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := atoiOr("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	accessTTL, err := durationOr("ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	refreshTTL, err := durationOr("REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8000"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   redisDB,

		JWTSecret:  os.Getenv("JWT_SECRET"),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,

		MediaRoot:  getenv("MEDIA_ROOT", "./media"),
		MediaURL:   getenv("MEDIA_URL", "/media/"),
		AnonHeader: getenv("ANON_HEADER", "X-Anon-Id"),

		TBankBaseURL:     getenv("TBANK_BASE_URL", "https://securepay.tinkoff.ru"),
		TBankTerminalKey: os.Getenv("TBANK_TERMINAL_KEY"),
		TBankPassword:    os.Getenv("TBANK_PASSWORD"),
		PaySuccessURL:    os.Getenv("PAY_SUCCESS_URL"),
		PayFailURL:       os.Getenv("PAY_FAIL_URL"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}

	//必須チェック
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.TBankTerminalKey != "" {
		if cfg.TBankPassword == "" {
			return Config{}, fmt.Errorf("TBANK_PASSWORD is required")
		}
		if cfg.PaySuccessURL == "" {
			return Config{}, fmt.Errorf("PAY_SUCCESS_URL is required")
		}
		if cfg.PayFailURL == "" {
			return Config{}, fmt.Errorf("PAY_FAIL_URL is required")
		}
	}
	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}

	return cfg, nil
}

// DSN は gorm に渡す接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr は echo の listen アドレス
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
