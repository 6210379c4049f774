package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Supported values of Postgres.Adapter.
const (
	AdapterPGXPool = "pgxpool"
	AdapterSQLDB   = "sqldb"
	AdapterSQLX    = "sqlx"
)

const (
	defaultSchema            = "celsus_core"
	defaultLogLevel          = "info"
	defaultHTTPAddress       = ":8080"
	defaultServiceName       = "celsus-core"
	defaultMaxConns          = int32(50)
	defaultMinConns          = int32(10)
	defaultMaxIdleConns      = 2
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = time.Minute * 5
	defaultConnectTimeout    = time.Second * 5
	defaultHealthCheckPeriod = time.Minute
	defaultWaitTimeSeconds   = 20
	defaultPollsPerSecond    = 1.0
)

var (
	// ErrReadingConfigFailed is returned when the configuration file cannot be read.
	ErrReadingConfigFailed = errors.New("reading config file failed")

	// ErrParsingConfigFailed is returned when the configuration file is not valid YAML.
	ErrParsingConfigFailed = errors.New("parsing config file failed")

	// ErrInvalidEnvironment is returned when an environment override has the wrong format.
	ErrInvalidEnvironment = errors.New("invalid environment variable")

	// ErrInvalidConfig is returned when the merged configuration fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the runtime configuration.
type Config struct {
	Region                string `yaml:"region"`
	CoreQueueURL          string `yaml:"coreQueueUrl"`
	ImagesBucket          string `yaml:"imagesBucket"`
	BookThumbnailsKey     string `yaml:"bookThumbnailsKey"`
	CloudServicesEndpoint string `yaml:"cloudServicesEndpoint" validate:"omitempty,url"`
	LogLevel              string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	HTTP          HTTP          `yaml:"http"`
	Postgres      Postgres      `yaml:"postgres"`
	Observability Observability `yaml:"observability"`
	Consumer      Consumer      `yaml:"consumer"`
}

// HTTP configures the REST server.
type HTTP struct {
	Address string `yaml:"address" validate:"required"`
}

// Postgres configures the catalog database.
type Postgres struct {
	DSN             string        `yaml:"dsn" validate:"required"`
	ReplicaDSN      string        `yaml:"replicaDsn"`
	Schema          string        `yaml:"schema" validate:"required"`
	Adapter         string        `yaml:"adapter" validate:"oneof=pgxpool sqldb sqlx"`
	MaxConns        int32         `yaml:"maxConns" validate:"gt=0"`
	MinConns        int32         `yaml:"minConns" validate:"gte=0,ltefield=MaxConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns" validate:"gte=0"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" validate:"gt=0"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" validate:"gt=0"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout" validate:"gt=0"`
}

// Observability configures the OpenTelemetry exporters.
type Observability struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"serviceName" validate:"required"`
	OTLPEndpoint string `yaml:"otlpEndpoint" validate:"required_if=Enabled true"`
	Insecure     bool   `yaml:"insecure"`
}

// Consumer configures the SQS consumer.
type Consumer struct {
	WaitTimeSeconds int     `yaml:"waitTimeSeconds" validate:"gte=0,lte=20"`
	PollsPerSecond  float64 `yaml:"pollsPerSecond" validate:"gt=0"`
}

// Default returns the configuration used when neither file nor environment say otherwise.
func Default() Config {
	return Config{
		LogLevel: defaultLogLevel,
		HTTP:     HTTP{Address: defaultHTTPAddress},
		Postgres: Postgres{
			Schema:          defaultSchema,
			Adapter:         AdapterPGXPool,
			MaxConns:        defaultMaxConns,
			MinConns:        defaultMinConns,
			MaxIdleConns:    defaultMaxIdleConns,
			MaxConnLifetime: defaultMaxConnLifetime,
			MaxConnIdleTime: defaultMaxConnIdleTime,
			ConnectTimeout:  defaultConnectTimeout,
		},
		Observability: Observability{ServiceName: defaultServiceName},
		Consumer: Consumer{
			WaitTimeSeconds: defaultWaitTimeSeconds,
			PollsPerSecond:  defaultPollsPerSecond,
		},
	}
}

// Load reads the configuration from path (skipped when empty) and the process environment.
func Load(path string) (Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Join(ErrReadingConfigFailed, err)
		}

		if err = yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Join(ErrParsingConfigFailed, err)
		}
	}

	if err := cfg.applyEnvironment(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	return nil
}

// SlogLevel is LogLevel as a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyEnvironment overrides fields from the environment. The first variable of each list that
// is set wins; the unprefixed names are the ones the deployment has always used.
func (c *Config) applyEnvironment(lookup func(string) (string, bool)) error {
	str := func(target *string, names ...string) {
		if value, ok := first(lookup, names...); ok {
			*target = value
		}
	}

	str(&c.Region, "CELSUS_REGION", "REGION")
	str(&c.CoreQueueURL, "CELSUS_CORE_QUEUE_URL", "CORE_QUEUE_URL")
	str(&c.ImagesBucket, "CELSUS_IMAGES_BUCKET", "IMAGES_BUCKET")
	str(&c.BookThumbnailsKey, "CELSUS_BOOK_THUMBNAILS_KEY", "BOOK_THUMBNAILS_KEY")
	str(&c.CloudServicesEndpoint, "CELSUS_CLOUD_SERVICES_ENDPOINT", "CLOUD_SERVICES_ENDPOINT")
	str(&c.LogLevel, "CELSUS_LOG_LEVEL", "LOG_LEVEL")
	str(&c.HTTP.Address, "CELSUS_HTTP_ADDRESS")
	str(&c.Postgres.DSN, "CELSUS_POSTGRES_DSN")
	str(&c.Postgres.ReplicaDSN, "CELSUS_POSTGRES_REPLICA_DSN")
	str(&c.Postgres.Schema, "CELSUS_POSTGRES_SCHEMA", "PGSCHEMA")
	str(&c.Postgres.Adapter, "CELSUS_POSTGRES_ADAPTER")
	str(&c.Observability.ServiceName, "CELSUS_SERVICE_NAME")
	str(&c.Observability.OTLPEndpoint, "CELSUS_OTLP_ENDPOINT")

	var errs []error

	if value, ok := first(lookup, "CELSUS_OTEL_ENABLED"); ok {
		enabled, err := strconv.ParseBool(value)
		errs = append(errs, envError("CELSUS_OTEL_ENABLED", err))
		c.Observability.Enabled = enabled
	}

	if value, ok := first(lookup, "CELSUS_OTLP_INSECURE"); ok {
		insecure, err := strconv.ParseBool(value)
		errs = append(errs, envError("CELSUS_OTLP_INSECURE", err))
		c.Observability.Insecure = insecure
	}

	if value, ok := first(lookup, "CELSUS_CONSUMER_WAIT_TIME_SECONDS"); ok {
		seconds, err := strconv.Atoi(value)
		errs = append(errs, envError("CELSUS_CONSUMER_WAIT_TIME_SECONDS", err))
		c.Consumer.WaitTimeSeconds = seconds
	}

	if value, ok := first(lookup, "CELSUS_CONSUMER_POLLS_PER_SECOND"); ok {
		polls, err := strconv.ParseFloat(value, 64)
		errs = append(errs, envError("CELSUS_CONSUMER_POLLS_PER_SECOND", err))
		c.Consumer.PollsPerSecond = polls
	}

	return errors.Join(errs...)
}

func first(lookup func(string) (string, bool), names ...string) (string, bool) {
	for _, name := range names {
		if value, ok := lookup(name); ok && value != "" {
			return value, true
		}
	}

	return "", false
}

func envError(name string, err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(ErrInvalidEnvironment, fmt.Errorf("%s: %w", name, err))
}
