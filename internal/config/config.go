package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	ClientPage    string `json:"client_page"`
	// ResumeTTL is how long (in seconds) a dropped connection stays
	// resumable. Zero falls back to the built-in default.
	ResumeTTL int `json:"resume_ttl"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Load reads configuration from the provided path (defaults to config.json).
// Storage credentials may also come from RELAYGO_DB_URL and RELAYGO_DB_TOKEN
// so they never have to live in the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Databases == nil {
		cfg.Databases = make(map[string]DatabaseConfig)
	}
	applyEnvOverrides(&cfg)

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}

	if cfg.BasicConfig.ClientPage != "" && !filepath.IsAbs(cfg.BasicConfig.ClientPage) {
		cfg.BasicConfig.ClientPage = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.ClientPage)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("RELAYGO_DB_URL"); url != "" {
		db := cfg.Databases["sqlite3"]
		db.DSN = url
		cfg.Databases["sqlite3"] = db
	}
	if token := os.Getenv("RELAYGO_DB_TOKEN"); token != "" {
		db := cfg.Databases["mysql"]
		db.Password = token
		cfg.Databases["mysql"] = db
	}
}
