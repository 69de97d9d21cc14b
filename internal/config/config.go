package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/montrealks/bowerbirder/internal/jobs"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Worker     WorkerConfig     `yaml:"worker"`
	Limits     LimitsConfig     `yaml:"limits"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedIPs restricts the API to the listed client addresses when
	// non-empty. Leave empty to disable the gate (local development).
	AllowedIPs []string `yaml:"allowed_ips"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	MigrationsDir   string        `yaml:"migrations_dir"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LimitsConfig bounds submissions and the queue. Zero values fall back to
// the defaults applied in Load.
type LimitsConfig struct {
	MinImages           int `yaml:"min_images"`
	MaxImages           int `yaml:"max_images"`
	MaxImageSizeMB      int `yaml:"max_image_size_mb"`
	MaxTotalSizeMB      int `yaml:"max_total_size_mb"`
	MaxQueueLength      int `yaml:"max_queue_length"`
	OutputExpiryMinutes int `yaml:"output_expiry_minutes"`
}

// ArtifactsConfig selects and configures the artifact storage backend.
type ArtifactsConfig struct {
	Backend       string   `yaml:"backend"` // "fs" or "s3"
	OutputDir     string   `yaml:"output_dir"`
	ImagesDir     string   `yaml:"images_dir"`
	PublicBaseURL string   `yaml:"public_base_url"`
	S3            S3Config `yaml:"s3"`
}

// S3Config holds object storage settings for the s3 artifact backend.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// GenerationConfig holds the external image generation service settings.
type GenerationConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	// Secrets come from the environment, never the config file.
	if key := os.Getenv("GENERATION_API_KEY"); key != "" {
		config.Generation.APIKey = key
	}
	if pw := os.Getenv("DATABASE_PASSWORD"); pw != "" {
		config.Database.Password = pw
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Limits.MinImages == 0 {
		c.Limits.MinImages = 2
	}
	if c.Limits.MaxImages == 0 {
		c.Limits.MaxImages = 6
	}
	if c.Limits.MaxImageSizeMB == 0 {
		c.Limits.MaxImageSizeMB = 20
	}
	if c.Limits.MaxTotalSizeMB == 0 {
		c.Limits.MaxTotalSizeMB = 100
	}
	if c.Limits.MaxQueueLength == 0 {
		c.Limits.MaxQueueLength = 10
	}
	if c.Limits.OutputExpiryMinutes == 0 {
		c.Limits.OutputExpiryMinutes = 30
	}
	if c.Worker.SweepInterval == 0 {
		c.Worker.SweepInterval = time.Minute
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 3 * time.Minute
	}
}

// JobLimits converts the size limits into the domain form used by admission.
func (c *Config) JobLimits() jobs.Limits {
	return jobs.Limits{
		MinImages:     c.Limits.MinImages,
		MaxImages:     c.Limits.MaxImages,
		MaxImageBytes: int64(c.Limits.MaxImageSizeMB) << 20,
		MaxTotalBytes: int64(c.Limits.MaxTotalSizeMB) << 20,
	}
}

// OutputExpiry returns the result TTL as a duration.
func (c *Config) OutputExpiry() time.Duration {
	return time.Duration(c.Limits.OutputExpiryMinutes) * time.Minute
}

// ValidateAPIConfig checks the settings the API service depends on.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateShared(); err != nil {
		return err
	}

	if c.Artifacts.Backend == "fs" && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts output_dir is required for the fs backend")
	}

	if c.Artifacts.ImagesDir == "" {
		return fmt.Errorf("artifacts images_dir is required")
	}

	return nil
}

// ValidateWorkerConfig checks the settings the worker service depends on.
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Generation.Endpoint == "" {
		return fmt.Errorf("generation endpoint is required")
	}

	switch c.Artifacts.Backend {
	case "fs":
		if c.Artifacts.OutputDir == "" {
			return fmt.Errorf("artifacts output_dir is required for the fs backend")
		}
	case "s3":
		if c.Artifacts.S3.Bucket == "" {
			return fmt.Errorf("artifacts s3 bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown artifacts backend: %q", c.Artifacts.Backend)
	}

	return c.validateShared()
}

func (c *Config) validateShared() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Limits.MinImages > c.Limits.MaxImages {
		return fmt.Errorf("limits min_images (%d) exceeds max_images (%d)", c.Limits.MinImages, c.Limits.MaxImages)
	}

	return nil
}
