package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ondo/internal/logger"
)

// rawConfig mirrors Config with durations as strings ("1s", "500ms").
type rawConfig struct {
	SenderType string         `json:"SenderType"`
	Sensor     rawSensor      `json:"Sensor"`
	File       FileConfig     `json:"File"`
	Redis      rawRedis       `json:"Redis"`
	Kafka      rawKafkaConfig `json:"Kafka"`
	SOCKSProxy SOCKSConfig    `json:"SocksProxy"`
}

type rawSensor struct {
	HelperPath        string `json:"HelperPath"`
	HelperName        string `json:"HelperName"`
	DaemonInterval    string `json:"DaemonInterval"`
	OneShotTimeout    string `json:"OneShotTimeout"`
	StopTimeout       string `json:"StopTimeout"`
	RestartBackoffMax string `json:"RestartBackoffMax"`
	NvidiaSMIPath     string `json:"NvidiaSMIPath"`
	NvidiaSMITimeout  string `json:"NvidiaSMITimeout"`
	PollInterval      string `json:"PollInterval"`
	PollTimeout       string `json:"PollTimeout"`
	Simulate          bool   `json:"Simulate"`
}

type rawRedis struct {
	Address  string `json:"Address"`
	Password string `json:"Password"`
	DB       int    `json:"DB"`
	Key      string `json:"Key"`
	Channel  string `json:"Channel"`
	TTL      string `json:"TTL"`
}

type rawKafkaConfig struct {
	Brokers        []string `json:"Brokers"`
	Topic          string   `json:"Topic"`
	Key            string   `json:"Key"`
	Compression    string   `json:"Compression"`
	RequiredAcks   int      `json:"RequiredAcks"`
	MaxRetries     int      `json:"MaxRetries"`
	RetryBackoff   string   `json:"RetryBackoff"`
	FlushFrequency string   `json:"FlushFrequency"`
	FlushMessages  int      `json:"FlushMessages"`
	BatchSize      int      `json:"BatchSize"`
	Timeout        string   `json:"Timeout"`
	EnableTLS      bool     `json:"EnableTLS"`
	TLSCertFile    string   `json:"TLSCertFile"`
	TLSKeyFile     string   `json:"TLSKeyFile"`
	TLSCAFile      string   `json:"TLSCAFile"`
	SASLEnabled    bool     `json:"SASLEnabled"`
	SASLMechanism  string   `json:"SASLMechanism"`
	SASLUser       string   `json:"SASLUser"`
	SASLPassword   string   `json:"SASLPassword"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
	Format     string `json:"Format"`
}

// durationField parses one optional duration into dst. Empty leaves dst untouched.
type durationField struct {
	name string
	raw  string
	dst  *time.Duration
}

func parseDurations(fields ...durationField) error {
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid %s duration: %w", f.name, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s duration: must not be negative", f.name)
		}
		*f.dst = d
	}
	return nil
}

// Load reads configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from JSON bytes over DefaultConfig.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	parsed, err := convertRawConfig(&raw)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Merge(parsed)
	cfg.SenderType = strings.ToLower(cfg.SenderType)

	switch cfg.SenderType {
	case "file", "redis", "kafka":
	default:
		return nil, fmt.Errorf("unknown sender type: %s (supported: file, redis, kafka)", cfg.SenderType)
	}
	return cfg, nil
}

func convertRawConfig(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		SenderType: raw.SenderType,
		File:       raw.File,
		SOCKSProxy: raw.SOCKSProxy,
		Sensor: SensorConfig{
			HelperPath:    raw.Sensor.HelperPath,
			HelperName:    raw.Sensor.HelperName,
			NvidiaSMIPath: raw.Sensor.NvidiaSMIPath,
			Simulate:      raw.Sensor.Simulate,
		},
		Redis: RedisConfig{
			Address:  raw.Redis.Address,
			Password: raw.Redis.Password,
			DB:       raw.Redis.DB,
			Key:      raw.Redis.Key,
			Channel:  raw.Redis.Channel,
		},
		Kafka: KafkaConfig{
			Brokers:       raw.Kafka.Brokers,
			Topic:         raw.Kafka.Topic,
			Key:           raw.Kafka.Key,
			Compression:   raw.Kafka.Compression,
			RequiredAcks:  raw.Kafka.RequiredAcks,
			MaxRetries:    raw.Kafka.MaxRetries,
			FlushMessages: raw.Kafka.FlushMessages,
			BatchSize:     raw.Kafka.BatchSize,
			EnableTLS:     raw.Kafka.EnableTLS,
			TLSCertFile:   raw.Kafka.TLSCertFile,
			TLSKeyFile:    raw.Kafka.TLSKeyFile,
			TLSCAFile:     raw.Kafka.TLSCAFile,
			SASLEnabled:   raw.Kafka.SASLEnabled,
			SASLMechanism: raw.Kafka.SASLMechanism,
			SASLUser:      raw.Kafka.SASLUser,
			SASLPassword:  raw.Kafka.SASLPassword,
		},
	}

	s, k := &raw.Sensor, &raw.Kafka
	err := parseDurations(
		durationField{"Sensor.DaemonInterval", s.DaemonInterval, &cfg.Sensor.DaemonInterval},
		durationField{"Sensor.OneShotTimeout", s.OneShotTimeout, &cfg.Sensor.OneShotTimeout},
		durationField{"Sensor.StopTimeout", s.StopTimeout, &cfg.Sensor.StopTimeout},
		durationField{"Sensor.RestartBackoffMax", s.RestartBackoffMax, &cfg.Sensor.RestartBackoffMax},
		durationField{"Sensor.NvidiaSMITimeout", s.NvidiaSMITimeout, &cfg.Sensor.NvidiaSMITimeout},
		durationField{"Sensor.PollInterval", s.PollInterval, &cfg.Sensor.PollInterval},
		durationField{"Sensor.PollTimeout", s.PollTimeout, &cfg.Sensor.PollTimeout},
		durationField{"Redis.TTL", raw.Redis.TTL, &cfg.Redis.TTL},
		durationField{"Kafka.RetryBackoff", k.RetryBackoff, &cfg.Kafka.RetryBackoff},
		durationField{"Kafka.FlushFrequency", k.FlushFrequency, &cfg.Kafka.FlushFrequency},
		durationField{"Kafka.Timeout", k.Timeout, &cfg.Kafka.Timeout},
	)
	if err != nil {
		return nil, err
	}

	if cfg.Sensor.PollInterval != 0 && cfg.Sensor.PollInterval < 100*time.Millisecond {
		return nil, fmt.Errorf("invalid Sensor.PollInterval %s: minimum is 100ms", cfg.Sensor.PollInterval)
	}
	return cfg, nil
}

// LoadLogging reads logging configuration from the specified file path.
func LoadLogging(path string) (*logger.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logging config file: %w", err)
	}
	return ParseLogging(data)
}

// ParseLogging parses logging configuration from JSON bytes over logger.DefaultConfig.
func ParseLogging(data []byte) (*logger.Config, error) {
	var raw rawLoggingConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse logging config JSON: %w", err)
	}

	lc := logger.DefaultConfig()
	if raw.Level != "" {
		lc.Level = raw.Level
	}
	if raw.FilePath != "" {
		lc.FilePath = raw.FilePath
	}
	if raw.MaxSizeMB != 0 {
		lc.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups != 0 {
		lc.MaxBackups = raw.MaxBackups
	}
	if raw.MaxAgeDays != 0 {
		lc.MaxAgeDays = raw.MaxAgeDays
	}
	if raw.Format != "" {
		lc.Format = raw.Format
	}
	lc.Compress = raw.Compress
	lc.Console = raw.Console

	return &lc, nil
}

// LoadSplit loads Ondo.json and Logging.json.
func LoadSplit(configPath, loggingPath string) (*Config, *logger.Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lc, err := LoadLogging(loggingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load logging config: %w", err)
	}

	return cfg, lc, nil
}
