package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings for the vendor device process.
type Config struct {
	Port     string `envconfig:"PORT" default:"8081"`
	DBPath   string `envconfig:"DB_PATH" default:"vendorpos.db"` // sqlite file, one per vendor/device install
	VendorID string `envconfig:"VENDOR_ID"`
	LogFile  string `envconfig:"LOG_FILE"`

	RemoteBaseURL string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:8080/api/offline"`
	RemoteTimeout time.Duration `envconfig:"REMOTE_TIMEOUT" default:"15s"`
	RemoteToken   string        `envconfig:"REMOTE_TOKEN"`

	AutoSyncEnabled  bool          `envconfig:"AUTO_SYNC_ENABLED" default:"true"`
	AutoSyncInterval time.Duration `envconfig:"AUTO_SYNC_INTERVAL" default:"30s"`
	PullOnReconnect  bool          `envconfig:"PULL_ON_RECONNECT" default:"true"`
	StartOnline      bool          `envconfig:"START_ONLINE" default:"false"`

	// bcrypt hash of the device key; empty leaves the local API open.
	DeviceKeyHash string `envconfig:"DEVICE_KEY_HASH"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	log.Printf("[config] PORT=%s DB_PATH=%s VENDOR_ID=%s REMOTE_BASE_URL=%s AUTO_SYNC=%t/%s START_ONLINE=%t REMOTE_TOKEN=%s DEVICE_KEY=%s",
		cfg.Port, cfg.DBPath, cfg.VendorID, cfg.RemoteBaseURL, cfg.AutoSyncEnabled, cfg.AutoSyncInterval,
		cfg.StartOnline, mask(cfg.RemoteToken), mask(cfg.DeviceKeyHash))
	return cfg, nil
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<set>"
}
