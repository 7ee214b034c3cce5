package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type DBConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"user"`
	Password string `envconfig:"PASSWORD" default:"password"`
	Name     string `envconfig:"NAME" default:"clipbooking"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
}

type Config struct {
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DB             DBConfig `envconfig:"DB"`
	MigrationsPath string   `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`

	EasySlipToken   string        `envconfig:"EASYSLIP_TOKEN"`
	EasySlipURL     string        `envconfig:"EASYSLIP_URL" default:"https://developer.easyslip.com/api/v1/verify"`
	EasySlipTimeout time.Duration `envconfig:"EASYSLIP_TIMEOUT" default:"15s"`

	SupabaseURL       string        `envconfig:"SUPABASE_URL"`
	SupabaseKey       string        `envconfig:"SUPABASE_ANON_KEY"`
	SlipBucketName    string        `envconfig:"SLIP_BUCKET_NAME" default:"slips"`
	SlipUploadTimeout time.Duration `envconfig:"SLIP_UPLOAD_TIMEOUT" default:"5s"`

	// TimeDiffLimit is the allowed distance in minutes between the slip's
	// transaction time and the moment it is verified.
	TimeDiffLimit int     `envconfig:"TIME_DIFF_LIMIT" default:"10"`
	Amount        float64 `envconfig:"AMOUNT"`
	ReceiverName  string  `envconfig:"RECEIVER_NAME"`

	BookingCleanupMinutes  int  `envconfig:"BOOKING_CLEANUP_MINUTES" default:"10"`
	CleanupIntervalMinutes int  `envconfig:"CLEANUP_INTERVAL_MINUTES" default:"5"`
	CronEnabled            bool `envconfig:"CRON_ENABLED" default:"true"`

	KafkaEnabled            bool   `envconfig:"KAFKA_ENABLED" default:"true"`
	KafkaBrokerURL          string `envconfig:"KAFKA_BROKER_URL" default:"localhost:9092"`
	KafkaPaymentEventsTopic string `envconfig:"KAFKA_PAYMENT_EVENTS_TOPIC" default:"payment_verification_events"`
	KafkaConsumerGroup      string `envconfig:"KAFKA_CONSUMER_GROUP" default:"clipbooking-bookings-group"`

	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"1s"`
	OutboxPollTimeout  time.Duration `envconfig:"OUTBOX_POLL_TIMEOUT" default:"500ms"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the verification pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.EasySlipToken == "" || c.EasySlipURL == "" {
		errs = append(errs, errors.New("EASYSLIP_TOKEN and EASYSLIP_URL must be set"))
	}
	if c.ReceiverName == "" {
		errs = append(errs, errors.New("RECEIVER_NAME must be set"))
	}
	if c.TimeDiffLimit <= 0 {
		errs = append(errs, fmt.Errorf("TIME_DIFF_LIMIT must be positive, got %d", c.TimeDiffLimit))
	}
	if c.BookingCleanupMinutes <= 0 {
		errs = append(errs, fmt.Errorf("BOOKING_CLEANUP_MINUTES must be positive, got %d", c.BookingCleanupMinutes))
	}
	if c.CleanupIntervalMinutes <= 0 {
		errs = append(errs, fmt.Errorf("CLEANUP_INTERVAL_MINUTES must be positive, got %d", c.CleanupIntervalMinutes))
	}
	return errors.Join(errs...)
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

func (c *Config) CleanupMaxAge() time.Duration {
	return time.Duration(c.BookingCleanupMinutes) * time.Minute
}
