package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AWS      AWSConfig      `yaml:"aws"`
	APNS     APNSConfig     `yaml:"apns"`
	JWT      JWTConfig      `yaml:"jwt"`
	Game     GameConfig     `yaml:"game"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis configuration (event fan-out and job queue)
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"` // custom S3-compatible endpoint
}

// APNSConfig holds Apple push notification configuration
type APNSConfig struct {
	Enabled bool   `yaml:"enabled"`
	KeyPath string `yaml:"key_path"`
	KeyID   string `yaml:"key_id"`
	TeamID  string `yaml:"team_id"`
	Topic   string `yaml:"topic"`
	Sandbox bool   `yaml:"sandbox"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// GameConfig holds the gameplay tunables
type GameConfig struct {
	MediaTTLMinutes     int `yaml:"media_ttl_minutes"`
	MaxChallengeChanges int `yaml:"max_challenge_changes"`
	MaxBonusChanges     int `yaml:"max_bonus_changes"`
	FreeChallengeCount  int `yaml:"free_challenge_count"`
	MaxChallengeCount   int `yaml:"max_challenge_count"`
	SweepIntervalSec    int `yaml:"sweep_interval_sec"`
}

// MediaTTL returns the ephemeral media lifetime as a duration.
func (g *GameConfig) MediaTTL() time.Duration {
	return time.Duration(g.MediaTTLMinutes) * time.Minute
}

// SweepInterval returns how often the background sweep runs.
func (g *GameConfig) SweepInterval() time.Duration {
	return time.Duration(g.SweepIntervalSec) * time.Second
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Game.MediaTTLMinutes <= 0 {
		c.Game.MediaTTLMinutes = 10
	}
	if c.Game.MaxChallengeChanges <= 0 {
		c.Game.MaxChallengeChanges = 3
	}
	if c.Game.MaxBonusChanges <= 0 {
		c.Game.MaxBonusChanges = 3
	}
	if c.Game.FreeChallengeCount <= 0 {
		c.Game.FreeChallengeCount = 10
	}
	if c.Game.MaxChallengeCount <= 0 {
		c.Game.MaxChallengeCount = 50
	}
	if c.Game.SweepIntervalSec <= 0 {
		c.Game.SweepIntervalSec = 60
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
