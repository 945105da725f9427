package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存批次與外部相依的執行設定。
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Mail   MailConfig   `yaml:"mail"`
	Alerts AlertsConfig `yaml:"alerts"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type MailConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	From    string        `yaml:"from"`
	Timeout time.Duration `yaml:"timeout"`
}

type AlertsConfig struct {
	Workers  int           `yaml:"workers"`
	Interval time.Duration `yaml:"interval"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Mail.BaseURL == "" {
		cfg.Mail.BaseURL = "https://api.mailrelay.example.com"
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "alerts@property-alerts.local"
	}
	if cfg.Mail.Timeout == 0 {
		cfg.Mail.Timeout = 10 * time.Second
	}
	if cfg.Alerts.Workers == 0 {
		cfg.Alerts.Workers = 4
	}
	if cfg.Alerts.Interval == 0 {
		cfg.Alerts.Interval = time.Hour
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("MAIL_ENABLED"); val != "" {
		cfg.Mail.Enabled = (val == "true")
	}
	if val := os.Getenv("MAIL_BASE_URL"); val != "" {
		cfg.Mail.BaseURL = val
	}
	if val := os.Getenv("MAIL_API_KEY"); val != "" {
		cfg.Mail.APIKey = val
	}
	if val := os.Getenv("MAIL_FROM"); val != "" {
		cfg.Mail.From = val
	}
	if val := os.Getenv("ALERT_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Alerts.Workers = n
		}
	}
	if val := os.Getenv("ALERT_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Alerts.Interval = d
		}
	}
	return cfg
}
