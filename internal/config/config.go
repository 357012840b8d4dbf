package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Sink names accepted by SINK.
const (
	SinkKafka  = "kafka"
	SinkRedis  = "redis"
	SinkStdout = "stdout"
)

// DefaultCADURL is the DataSF real-time dispatched calls endpoint.
const DefaultCADURL = "https://data.sfgov.org/resource/gnap-fj3t.json"

// Config holds all service settings, populated from environment variables
// and an optional YAML file named by CONFIG_FILE.
type Config struct {
	CADURL       string
	PollInterval time.Duration
	FeedTimeout  time.Duration

	// CoT generation.
	CoTStale  time.Duration
	CoTHostID string

	// Outbound sink selection and settings.
	Sink         string
	KafkaBrokers []string
	KafkaTopic   string
	RedisAddr    string
	RedisDB      int
	RedisKey     string
	RedisMaxLen  int64

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, falling back to the
// CONFIG_FILE values and then to defaults.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	get := func(key, fallback string) string {
		if v, ok := file[key]; ok {
			fallback = v
		}
		return sharedcfg.EnvOrDefault(key, fallback)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parseSeconds("POLL_INTERVAL", get("POLL_INTERVAL", "60"))
	if err != nil {
		return nil, err
	}
	cotStale, err := parseSeconds("COT_STALE", get("COT_STALE", "120"))
	if err != nil {
		return nil, err
	}

	feedTimeout, err := time.ParseDuration(get("FEED_TIMEOUT", "30s"))
	if err != nil || feedTimeout <= 0 {
		return nil, errors.New("invalid FEED_TIMEOUT")
	}

	redisDB, err := strconv.Atoi(get("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}
	redisMaxLen, err := strconv.ParseInt(get("REDIS_MAX_LEN", "0"), 10, 64)
	if err != nil || redisMaxLen < 0 {
		return nil, errors.New("invalid REDIS_MAX_LEN")
	}

	hostID := defaultHostID()
	if v, ok := file["COT_HOST_ID"]; ok {
		hostID = v
	}
	// An explicitly empty COT_HOST_ID is honoured and drops the remarks tag.
	if v, ok := os.LookupEnv("COT_HOST_ID"); ok {
		hostID = v
	}

	cfg := &Config{
		CADURL:       get("CAD_URL", DefaultCADURL),
		PollInterval: pollInterval,
		FeedTimeout:  feedTimeout,

		CoTStale:  cotStale,
		CoTHostID: hostID,

		Sink:         strings.ToLower(get("SINK", SinkKafka)),
		KafkaBrokers: sharedcfg.ParseBrokers(get("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   get("KAFKA_TOPIC", "cot-events"),
		RedisAddr:    get("REDIS_ADDR", "localhost:6379"),
		RedisDB:      redisDB,
		RedisKey:     get("REDIS_KEY", "cot:tx"),
		RedisMaxLen:  redisMaxLen,

		HTTPAddr:        get("HTTP_ADDR", ":8080"),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogFormat:       get("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CADURL == "" {
		return errors.New("CAD_URL is required")
	}
	switch c.Sink {
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when SINK is kafka")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when SINK is kafka")
		}
	case SinkRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when SINK is redis")
		}
		if c.RedisKey == "" {
			return errors.New("REDIS_KEY is required when SINK is redis")
		}
	case SinkStdout:
	default:
		return fmt.Errorf("unknown SINK %q", c.Sink)
	}
	return nil
}

// parseSeconds reads a positive whole number of seconds.
func parseSeconds(key, value string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q is not a positive number of seconds", key, value)
	}
	return time.Duration(n) * time.Second, nil
}

// loadFile reads a flat YAML document of option names to scalar values.
// An empty path yields no values.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			values[strings.ToUpper(k)] = ""
		case []any:
			parts := make([]string, len(v))
			for i, p := range v {
				parts[i] = fmt.Sprint(p)
			}
			values[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			values[strings.ToUpper(k)] = fmt.Sprint(v)
		}
	}
	return values, nil
}

func defaultHostID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return "sfpdcadcot@" + host
}
