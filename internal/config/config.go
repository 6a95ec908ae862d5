// Package config provides configuration management for the Ondo agent.
package config

import (
	"time"
)

// Config is the root configuration structure, loaded from Ondo.json.
type Config struct {
	SenderType string       `json:"SenderType"` // "file", "redis" or "kafka"
	Sensor     SensorConfig `json:"Sensor"`
	File       FileConfig   `json:"File"`
	Redis      RedisConfig  `json:"Redis"`
	Kafka      KafkaConfig  `json:"Kafka"`
	SOCKSProxy SOCKSConfig  `json:"SocksProxy"`
}

// SensorConfig controls snapshot acquisition.
type SensorConfig struct {
	// HelperPath overrides helper discovery. Empty searches beside the executable.
	HelperPath string `json:"HelperPath"`
	HelperName string `json:"HelperName"`

	DaemonInterval    time.Duration `json:"DaemonInterval"`    // helper sampling interval
	OneShotTimeout    time.Duration `json:"OneShotTimeout"`    // bound on a one-shot helper run
	StopTimeout       time.Duration `json:"StopTimeout"`       // wait for the daemon to exit on shutdown
	RestartBackoffMax time.Duration `json:"RestartBackoffMax"` // cap on crash-loop relaunch delay

	NvidiaSMIPath    string        `json:"NvidiaSMIPath"`
	NvidiaSMITimeout time.Duration `json:"NvidiaSMITimeout"`

	PollInterval time.Duration `json:"PollInterval"`
	PollTimeout  time.Duration `json:"PollTimeout"`

	// Simulate forces the simulation tier regardless of platform.
	Simulate bool `json:"Simulate"`
}

// FileConfig contains settings for the file sender.
type FileConfig struct {
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	Console    bool   `json:"Console"`
	Pretty     bool   `json:"Pretty"`
	Format     string `json:"Format"` // "json" or "text"
}

// RedisConfig contains settings for the Redis sender.
type RedisConfig struct {
	Address  string        `json:"Address"`
	Password string        `json:"Password"`
	DB       int           `json:"DB"`
	Key      string        `json:"Key"`
	Channel  string        `json:"Channel"`
	TTL      time.Duration `json:"TTL"`
}

// KafkaConfig contains Kafka connection settings.
type KafkaConfig struct {
	Brokers        []string      `json:"Brokers"`
	Topic          string        `json:"Topic"`
	Key            string        `json:"Key"`
	Compression    string        `json:"Compression"`
	RequiredAcks   int           `json:"RequiredAcks"`
	MaxRetries     int           `json:"MaxRetries"`
	RetryBackoff   time.Duration `json:"RetryBackoff"`
	FlushFrequency time.Duration `json:"FlushFrequency"`
	FlushMessages  int           `json:"FlushMessages"`
	BatchSize      int           `json:"BatchSize"`
	Timeout        time.Duration `json:"Timeout"`
	EnableTLS      bool          `json:"EnableTLS"`
	TLSCertFile    string        `json:"TLSCertFile"`
	TLSKeyFile     string        `json:"TLSKeyFile"`
	TLSCAFile      string        `json:"TLSCAFile"`
	SASLEnabled    bool          `json:"SASLEnabled"`
	SASLMechanism  string        `json:"SASLMechanism"`
	SASLUser       string        `json:"SASLUser"`
	SASLPassword   string        `json:"SASLPassword"`
}

// SOCKSConfig contains SOCKS5 proxy settings.
type SOCKSConfig struct {
	Host string `json:"Host"`
	Port int    `json:"Port"`
}

// Enabled reports whether a proxy is configured.
func (s SOCKSConfig) Enabled() bool {
	return s.Host != "" && s.Port > 0
}

// DefaultSensorConfig returns the acquisition defaults.
func DefaultSensorConfig() SensorConfig {
	return SensorConfig{
		DaemonInterval:    time.Second,
		OneShotTimeout:    5 * time.Second,
		StopTimeout:       5 * time.Second,
		RestartBackoffMax: time.Minute,
		NvidiaSMITimeout:  3 * time.Second,
		PollInterval:      time.Second,
		PollTimeout:       10 * time.Second,
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SenderType: "file",
		Sensor:     DefaultSensorConfig(),
		File: FileConfig{
			FilePath:   "log/Ondo/snapshots.jsonl",
			MaxSizeMB:  50,
			MaxBackups: 3,
			Format:     "json",
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Key:     "ondo:snapshot",
			Channel: "ondo:snapshots",
			TTL:     30 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			Topic:          "ondo-snapshots",
			Compression:    "snappy",
			RequiredAcks:   1,
			MaxRetries:     3,
			RetryBackoff:   100 * time.Millisecond,
			FlushFrequency: 500 * time.Millisecond,
			FlushMessages:  100,
			BatchSize:      16384,
			Timeout:        10 * time.Second,
		},
	}
}

// Merge applies non-zero values from other to this config. Booleans are
// always taken from other.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.SenderType != "" {
		c.SenderType = other.SenderType
	}

	c.Sensor.Merge(other.Sensor)

	// File
	if other.File.FilePath != "" {
		c.File.FilePath = other.File.FilePath
	}
	if other.File.MaxSizeMB != 0 {
		c.File.MaxSizeMB = other.File.MaxSizeMB
	}
	if other.File.MaxBackups != 0 {
		c.File.MaxBackups = other.File.MaxBackups
	}
	c.File.Console = other.File.Console
	c.File.Pretty = other.File.Pretty
	if other.File.Format != "" {
		c.File.Format = other.File.Format
	}

	// Redis
	if other.Redis.Address != "" {
		c.Redis.Address = other.Redis.Address
	}
	if other.Redis.Password != "" {
		c.Redis.Password = other.Redis.Password
	}
	if other.Redis.DB != 0 {
		c.Redis.DB = other.Redis.DB
	}
	if other.Redis.Key != "" {
		c.Redis.Key = other.Redis.Key
	}
	if other.Redis.Channel != "" {
		c.Redis.Channel = other.Redis.Channel
	}
	if other.Redis.TTL != 0 {
		c.Redis.TTL = other.Redis.TTL
	}

	// Kafka
	if len(other.Kafka.Brokers) > 0 {
		c.Kafka.Brokers = other.Kafka.Brokers
	}
	if other.Kafka.Topic != "" {
		c.Kafka.Topic = other.Kafka.Topic
	}
	if other.Kafka.Key != "" {
		c.Kafka.Key = other.Kafka.Key
	}
	if other.Kafka.Compression != "" {
		c.Kafka.Compression = other.Kafka.Compression
	}
	if other.Kafka.RequiredAcks != 0 {
		c.Kafka.RequiredAcks = other.Kafka.RequiredAcks
	}
	if other.Kafka.MaxRetries != 0 {
		c.Kafka.MaxRetries = other.Kafka.MaxRetries
	}
	if other.Kafka.RetryBackoff != 0 {
		c.Kafka.RetryBackoff = other.Kafka.RetryBackoff
	}
	if other.Kafka.FlushFrequency != 0 {
		c.Kafka.FlushFrequency = other.Kafka.FlushFrequency
	}
	if other.Kafka.FlushMessages != 0 {
		c.Kafka.FlushMessages = other.Kafka.FlushMessages
	}
	if other.Kafka.BatchSize != 0 {
		c.Kafka.BatchSize = other.Kafka.BatchSize
	}
	if other.Kafka.Timeout != 0 {
		c.Kafka.Timeout = other.Kafka.Timeout
	}
	c.Kafka.EnableTLS = other.Kafka.EnableTLS
	if other.Kafka.TLSCertFile != "" {
		c.Kafka.TLSCertFile = other.Kafka.TLSCertFile
	}
	if other.Kafka.TLSKeyFile != "" {
		c.Kafka.TLSKeyFile = other.Kafka.TLSKeyFile
	}
	if other.Kafka.TLSCAFile != "" {
		c.Kafka.TLSCAFile = other.Kafka.TLSCAFile
	}
	c.Kafka.SASLEnabled = other.Kafka.SASLEnabled
	if other.Kafka.SASLMechanism != "" {
		c.Kafka.SASLMechanism = other.Kafka.SASLMechanism
	}
	if other.Kafka.SASLUser != "" {
		c.Kafka.SASLUser = other.Kafka.SASLUser
	}
	if other.Kafka.SASLPassword != "" {
		c.Kafka.SASLPassword = other.Kafka.SASLPassword
	}

	// SOCKS proxy
	if other.SOCKSProxy.Host != "" {
		c.SOCKSProxy.Host = other.SOCKSProxy.Host
	}
	if other.SOCKSProxy.Port != 0 {
		c.SOCKSProxy.Port = other.SOCKSProxy.Port
	}
}

// Merge applies non-zero values from other.
func (s *SensorConfig) Merge(other SensorConfig) {
	if other.HelperPath != "" {
		s.HelperPath = other.HelperPath
	}
	if other.HelperName != "" {
		s.HelperName = other.HelperName
	}
	if other.DaemonInterval != 0 {
		s.DaemonInterval = other.DaemonInterval
	}
	if other.OneShotTimeout != 0 {
		s.OneShotTimeout = other.OneShotTimeout
	}
	if other.StopTimeout != 0 {
		s.StopTimeout = other.StopTimeout
	}
	if other.RestartBackoffMax != 0 {
		s.RestartBackoffMax = other.RestartBackoffMax
	}
	if other.NvidiaSMIPath != "" {
		s.NvidiaSMIPath = other.NvidiaSMIPath
	}
	if other.NvidiaSMITimeout != 0 {
		s.NvidiaSMITimeout = other.NvidiaSMITimeout
	}
	if other.PollInterval != 0 {
		s.PollInterval = other.PollInterval
	}
	if other.PollTimeout != 0 {
		s.PollTimeout = other.PollTimeout
	}
	s.Simulate = other.Simulate
}
