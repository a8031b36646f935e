package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// CrawlConfig holds the recognized crawl options.
type CrawlConfig struct {
	Concurrency    int           `json:"concurrency"`
	RequestDelay   time.Duration `json:"request_delay"`
	DepthLimit     int           `json:"depth_limit"`
	PageBudget     int           `json:"page_budget"`
	RequestTimeout time.Duration `json:"request_timeout"`
	WallClock      time.Duration `json:"crawl_wall_clock_budget"`
	RespectRobots  bool          `json:"respect_robots"`
	UserAgent      string        `json:"user_agent"`
	RedirectLimit  int           `json:"redirect_limit"`
	RetriesEnabled bool          `json:"retries_enabled"`
}

type VerifierConfig struct {
	HeloName    string        `json:"helo_name"`
	MailFrom    string        `json:"mail_from"`
	SMTPPort    string        `json:"smtp_port"`
	DNSTimeout  time.Duration `json:"dns_timeout"`
	SMTPTimeout time.Duration `json:"smtp_timeout"`
	Concurrency int           `json:"concurrency"`
	LookupWHOIS bool          `json:"lookup_whois"`
}

// FusionConfig weights the verification confidence against the crawl match score.
type FusionConfig struct {
	VerificationWeight float64 `json:"verification_weight"`
	MatchWeight        float64 `json:"match_weight"`
	MaxVerify          int     `json:"max_verify"`
}

type Config struct {
	Environment        string         `json:"environment"`
	ServerPort         string         `json:"server_port"`
	LogLevel           string         `json:"log_level"`
	LogFormat          string         `json:"log_format"`
	SentryDSN          string         `json:"-"`
	JWTSecret          string         `json:"-"`
	AllowedOrigins     []string       `json:"allowed_origins"`
	RateLimitPerMinute int            `json:"rate_limit_per_minute"`
	Redis              RedisConfig    `json:"redis"`
	DiscoverySource    string         `json:"discovery_source"`
	DiscoveryDeadline  time.Duration  `json:"discovery_deadline"`
	Crawl              CrawlConfig    `json:"crawl"`
	Verifier           VerifierConfig `json:"verifier"`
	Fusion             FusionConfig   `json:"fusion"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

// DefaultCrawlConfig mirrors the limits the discovery service has always run with.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		Concurrency:    4,
		RequestDelay:   500 * time.Millisecond,
		DepthLimit:     2,
		PageBudget:     10,
		RequestTimeout: 15 * time.Second,
		WallClock:      30 * time.Second,
		RespectRobots:  false,
		UserAgent:      "Mozilla/5.0 (compatible; EmailFinderBot/1.0)",
		RedirectLimit:  1,
		RetriesEnabled: false,
	}
}

func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		HeloName:    "emailverifier.local",
		MailFrom:    "verify@emailverifier.local",
		SMTPPort:    "25",
		DNSTimeout:  5 * time.Second,
		SMTPTimeout: 10 * time.Second,
		Concurrency: 1,
		LookupWHOIS: false,
	}
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		VerificationWeight: 0.6,
		MatchWeight:        0.4,
		MaxVerify:          5,
	}
}

func LoadConfig() error {
	crawl := DefaultCrawlConfig()
	verifier := DefaultVerifierConfig()
	fusion := DefaultFusionConfig()

	AppConfig = Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         getEnv("SERVER_PORT", "5002"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AllowedOrigins:     getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		DiscoverySource:   strings.ToLower(getEnv("DISCOVERY_SOURCE", "crawl")),
		DiscoveryDeadline: getEnvAsDuration("DISCOVERY_DEADLINE", 120*time.Second),
		Crawl: CrawlConfig{
			Concurrency:    getEnvAsInt("CRAWL_CONCURRENCY", crawl.Concurrency),
			RequestDelay:   getEnvAsDuration("CRAWL_REQUEST_DELAY", crawl.RequestDelay),
			DepthLimit:     getEnvAsInt("CRAWL_DEPTH_LIMIT", crawl.DepthLimit),
			PageBudget:     getEnvAsInt("CRAWL_PAGE_BUDGET", crawl.PageBudget),
			RequestTimeout: getEnvAsDuration("CRAWL_REQUEST_TIMEOUT", crawl.RequestTimeout),
			WallClock:      getEnvAsDuration("CRAWL_WALL_CLOCK_BUDGET", crawl.WallClock),
			RespectRobots:  getEnvAsBool("CRAWL_RESPECT_ROBOTS", crawl.RespectRobots),
			UserAgent:      getEnv("CRAWL_USER_AGENT", crawl.UserAgent),
			RedirectLimit:  getEnvAsInt("CRAWL_REDIRECT_LIMIT", crawl.RedirectLimit),
			RetriesEnabled: getEnvAsBool("CRAWL_RETRIES_ENABLED", crawl.RetriesEnabled),
		},
		Verifier: VerifierConfig{
			HeloName:    getEnv("VERIFY_HELO_NAME", verifier.HeloName),
			MailFrom:    getEnv("VERIFY_MAIL_FROM", verifier.MailFrom),
			SMTPPort:    getEnv("VERIFY_SMTP_PORT", verifier.SMTPPort),
			DNSTimeout:  getEnvAsDuration("VERIFY_DNS_TIMEOUT", verifier.DNSTimeout),
			SMTPTimeout: getEnvAsDuration("VERIFY_SMTP_TIMEOUT", verifier.SMTPTimeout),
			Concurrency: getEnvAsInt("VERIFY_CONCURRENCY", verifier.Concurrency),
			LookupWHOIS: getEnvAsBool("VERIFY_WHOIS", verifier.LookupWHOIS),
		},
		Fusion: FusionConfig{
			VerificationWeight: getEnvAsFloat("FUSION_VERIFICATION_WEIGHT", fusion.VerificationWeight),
			MatchWeight:        getEnvAsFloat("FUSION_MATCH_WEIGHT", fusion.MatchWeight),
			MaxVerify:          getEnvAsInt("FUSION_MAX_VERIFY", fusion.MaxVerify),
		},
	}

	if err := AppConfig.Validate(); err != nil {
		return err
	}

	logConfig()
	return nil
}

// Validate checks budgets and weights.
func (c Config) Validate() error {
	if c.Crawl.Concurrency < 1 {
		return fmt.Errorf("CRAWL_CONCURRENCY must be at least 1")
	}
	if c.Crawl.PageBudget < 1 {
		return fmt.Errorf("CRAWL_PAGE_BUDGET must be at least 1")
	}
	if c.Crawl.DepthLimit < 0 {
		return fmt.Errorf("CRAWL_DEPTH_LIMIT must not be negative")
	}
	if c.Crawl.RequestTimeout <= 0 || c.Crawl.WallClock <= 0 {
		return fmt.Errorf("crawl timeouts must be positive")
	}
	if c.Crawl.RedirectLimit < 0 {
		return fmt.Errorf("CRAWL_REDIRECT_LIMIT must not be negative")
	}
	if c.DiscoveryDeadline <= 0 {
		return fmt.Errorf("DISCOVERY_DEADLINE must be positive")
	}
	switch c.DiscoverySource {
	case "crawl", "patterns":
	default:
		return fmt.Errorf("unknown DISCOVERY_SOURCE %q", c.DiscoverySource)
	}
	w := c.Fusion
	if w.VerificationWeight < 0 || w.MatchWeight < 0 || math.Abs(w.VerificationWeight+w.MatchWeight-1) > 1e-9 {
		return fmt.Errorf("fusion weights must be non-negative and sum to 1")
	}
	if w.MaxVerify < 1 {
		return fmt.Errorf("FUSION_MAX_VERIFY must be at least 1")
	}
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		logrus.Warnf("Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return fallback
	}
	return value
}

// getEnvAsDuration accepts Go durations ("1500ms", "30s") or plain seconds ("30").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func logConfig() {
	logrus.WithFields(logrus.Fields{
		"environment":      AppConfig.Environment,
		"server_port":      AppConfig.ServerPort,
		"discovery_source": AppConfig.DiscoverySource,
		"crawl_pages":      AppConfig.Crawl.PageBudget,
		"crawl_depth":      AppConfig.Crawl.DepthLimit,
		"crawl_wall_clock": AppConfig.Crawl.WallClock.String(),
		"redis":            AppConfig.Redis.Enabled,
		"sentry":           AppConfig.SentryDSN != "",
		"protected":        AppConfig.JWTSecret != "",
	}).Info("🔧 Loaded configuration")
}
