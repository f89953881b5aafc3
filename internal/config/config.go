package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	defaultNASRSubscriptionURL = "https://nfdc.faa.gov/webContent/28DaySub/%s/28DaySubscription_NS.zip"
	defaultNASRLandingURL      = "https://www.faa.gov/air_traffic/flight_info/aeronav/aero_data/NASR_Subscription/%s"
	defaultDOFLandingURL       = "https://www.faa.gov/air_traffic/flight_info/aeronav/digital_products/dof/"
	defaultNMSAuthURL          = "https://api-staging.cgifederal-aim.com/v1/auth/token"
	defaultNMSNotamURL         = "https://api-staging.cgifederal-aim.com/nmsapi/v1/notams"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	OutputDir string
	WorkDir   string
	LogLevel  string
	LogFormat string

	// FAA publisher endpoints. NASR URLs take the cycle date ("2006-01-02") as
	// their single %s verb.
	UserAgent           string
	PublisherHost       string
	NASRSubscriptionURL string
	NASRLandingURL      string
	DOFLandingURL       string
	PageTimeout         time.Duration
	DownloadTimeout     time.Duration
	HTTPRetries         int

	// NOTAM Management Service credentials and endpoints.
	NMSClientID     string
	NMSClientSecret string
	NMSAuthURL      string
	NMSNotamURL     string
	NMSAuthTimeout  time.Duration
	NMSQueryTimeout time.Duration

	// FailsafeAllFamilies extends the keep-previous-data rule from obstacles
	// to airports and the master list.
	FailsafeAllFamilies bool

	// Optional sinks; empty disables.
	SQLitePath     string
	KafkaBrokers   []string
	KafkaTopic     string
	PushgatewayURL string
	HTTPAddr       string

	ShutdownTimeout time.Duration
}

// NMSEnabled reports whether both NOTAM credentials are present.
func (c *Config) NMSEnabled() bool {
	return c.NMSClientID != "" && c.NMSClientSecret != ""
}

// KafkaEnabled reports whether dataset events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pageTimeout, err := parseDuration("PAGE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := parseDuration("DOWNLOAD_TIMEOUT", "5m")
	if err != nil {
		return nil, err
	}
	authTimeout, err := parseDuration("NMS_AUTH_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	queryTimeout, err := parseDuration("NMS_QUERY_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	retries, err := strconv.Atoi(sharedcfg.EnvOrDefault("HTTP_RETRIES", "0"))
	if err != nil || retries < 0 || retries > 10 {
		return nil, errors.New("invalid HTTP_RETRIES: must be an integer between 0 and 10")
	}

	failsafe, err := strconv.ParseBool(sharedcfg.EnvOrDefault("FAILSAFE_ALL_FAMILIES", "true"))
	if err != nil {
		return nil, errors.New("invalid FAILSAFE_ALL_FAMILIES: must be a boolean")
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		OutputDir: sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		WorkDir:   sharedcfg.EnvOrDefault("WORK_DIR", os.TempDir()),
		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		UserAgent:           sharedcfg.EnvOrDefault("USER_AGENT", defaultUserAgent),
		PublisherHost:       sharedcfg.EnvOrDefault("PUBLISHER_HOST", "https://www.faa.gov"),
		NASRSubscriptionURL: sharedcfg.EnvOrDefault("NASR_SUBSCRIPTION_URL", defaultNASRSubscriptionURL),
		NASRLandingURL:      sharedcfg.EnvOrDefault("NASR_LANDING_URL", defaultNASRLandingURL),
		DOFLandingURL:       sharedcfg.EnvOrDefault("DOF_LANDING_URL", defaultDOFLandingURL),
		PageTimeout:         pageTimeout,
		DownloadTimeout:     downloadTimeout,
		HTTPRetries:         retries,

		NMSClientID:     strings.TrimSpace(os.Getenv("FAA_CLIENT_ID")),
		NMSClientSecret: strings.TrimSpace(os.Getenv("FAA_CLIENT_SECRET")),
		NMSAuthURL:      sharedcfg.EnvOrDefault("NMS_AUTH_URL", defaultNMSAuthURL),
		NMSNotamURL:     sharedcfg.EnvOrDefault("NMS_NOTAM_URL", defaultNMSNotamURL),
		NMSAuthTimeout:  authTimeout,
		NMSQueryTimeout: queryTimeout,

		FailsafeAllFamilies: failsafe,

		SQLitePath:     strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		KafkaBrokers:   brokers,
		KafkaTopic:     sharedcfg.EnvOrDefault("KAFKA_TOPIC", "faa-dataset-updates"),
		PushgatewayURL: strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL")),
		HTTPAddr:       strings.TrimSpace(os.Getenv("HTTP_ADDR")),

		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if !strings.Contains(cfg.NASRSubscriptionURL, "%s") {
		return nil, errors.New("NASR_SUBSCRIPTION_URL must contain a %s verb for the cycle date")
	}
	if !strings.Contains(cfg.NASRLandingURL, "%s") {
		return nil, errors.New("NASR_LANDING_URL must contain a %s verb for the cycle date")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
