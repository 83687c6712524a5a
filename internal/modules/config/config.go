package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	databaseDSN       = "DATABASE_DSN"
	adminAddressENV   = "ADMIN_ADDRESS"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
)

// Config is the daemon runtime configuration. The contract state
// itself lives in storage; this only covers the host side.
type Config struct {
	// Genesis identities. SelfAddress is the identity scheduled
	// self-calls arrive under.
	AdminAddress string `yaml:"admin_address"`
	SelfAddress  string `yaml:"self_address"`

	// Postgres DSN; empty runs on the in-memory store.
	DB string `yaml:"db_dsn"`

	// Genesis spend bounds, smallest currency unit. Zero = defaults.
	MinAmount uint64 `yaml:"min_amount"`
	MaxAmount uint64 `yaml:"max_amount"`

	// Slot geometry of the scheduling primitive.
	SlotMs      uint64 `yaml:"slot_ms"`
	WindowSlots uint64 `yaml:"window_slots"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Stream struct {
		Addr string `yaml:"addr"` // empty disables the event stream
	} `yaml:"stream"`
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		SelfAddress: "chronovault",
		SlotMs:      u64FromEnv("SLOT_MS", 500),
		WindowSlots: u64FromEnv("WINDOW_SLOTS", 20),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if admin := os.Getenv(adminAddressENV); admin != "" {
		config.AdminAddress = admin
	}
	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}

	return &config, nil
}

func u64FromEnv(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
