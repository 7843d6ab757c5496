package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	dErrors "diagflow/pkg/domain-errors"
)

// Config captures everything a verification run reads from its environment.
type Config struct {
	BaseURL      string `env:"DIAGFLOW_BASE_URL"       envDefault:"http://localhost:8089"`
	BrandBaseURL string `env:"DIAGFLOW_BRAND_BASE_URL"`
	Environment  string `env:"DIAGFLOW_ENVIRONMENT"    envDefault:"local"`

	StaticOTP       string `env:"DIAGFLOW_STATIC_OTP"        envDefault:"123456"`
	CountryCode     string `env:"DIAGFLOW_COUNTRY_CODE"      envDefault:"+91"`
	MemberMobile    string `env:"DIAGFLOW_MEMBER_MOBILE"`
	NonMemberMobile string `env:"DIAGFLOW_NON_MEMBER_MOBILE"`
	DefaultMobile   string `env:"DIAGFLOW_DEFAULT_MOBILE"`

	RazorpayKey    string `env:"DIAGFLOW_RAZORPAY_KEY"`
	RazorpaySecret string `env:"DIAGFLOW_RAZORPAY_SECRET"`

	ReportPath    string `env:"DIAGFLOW_REPORT_PATH"    envDefault:"test-output/reports/"`
	EnableLogging bool   `env:"DIAGFLOW_ENABLE_LOGGING" envDefault:"true"`
	LogLevel      string `env:"DIAGFLOW_LOG_LEVEL"      envDefault:"info"`
	LogFormat     string `env:"DIAGFLOW_LOG_FORMAT"     envDefault:"text"`
	MetricsFile   string `env:"DIAGFLOW_METRICS_FILE"`

	HTTPTimeout time.Duration `env:"DIAGFLOW_HTTP_TIMEOUT" envDefault:"30s"`
	RetryMax    uint64        `env:"DIAGFLOW_RETRY_MAX"    envDefault:"0"`
	RetryDelay  time.Duration `env:"DIAGFLOW_RETRY_DELAY"  envDefault:"2s"`
	// BreakerThreshold consecutive unreachable calls open the circuit. Zero disables it.
	BreakerThreshold int           `env:"DIAGFLOW_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"DIAGFLOW_BREAKER_COOLDOWN"  envDefault:"30s"`

	Redis RedisConfig
}

// RedisConfig configures the optional shared actor store.
type RedisConfig struct {
	URL          string        `env:"DIAGFLOW_REDIS_URL"`
	PoolSize     int           `env:"DIAGFLOW_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"DIAGFLOW_REDIS_MIN_IDLE_CONNS" envDefault:"1"`
	DialTimeout  time.Duration `env:"DIAGFLOW_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"DIAGFLOW_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"DIAGFLOW_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	// ContextTTL bounds how long persona state outlives the run that wrote it.
	ContextTTL time.Duration `env:"DIAGFLOW_REDIS_CONTEXT_TTL" envDefault:"2h"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BrandBaseURL == "" {
		cfg.BrandBaseURL = cfg.BaseURL
	}
	return cfg, nil
}

// Setting names accepted by Lookup. They keep the property-file names the
// suite has always been configured with.
const (
	KeyBaseURL         = "base.url"
	KeyBrandBaseURL    = "brand.base.url"
	KeyEnvironment     = "environment"
	KeyStaticOTP       = "static.otp"
	KeyCountryCode     = "country.code"
	KeyMemberMobile    = "mobile.number"
	KeyNonMemberMobile = "nonMemberMobile.number"
	KeyDefaultMobile   = "default.mobile"
	KeyRazorpayKey     = "razorpay.key"
	KeyRazorpaySecret  = "razorpay.secret"
	KeyReportPath      = "report.path"
	KeyEnableLogging   = "enable.logging"
)

// Lookup returns a named configuration value. Empty values are reported as
// missing so that callers never proceed on a silent default.
func (c Config) Lookup(name string) (string, error) {
	var v string
	switch name {
	case KeyBaseURL:
		v = c.BaseURL
	case KeyBrandBaseURL:
		v = c.BrandBaseURL
	case KeyEnvironment:
		v = c.Environment
	case KeyStaticOTP:
		v = c.StaticOTP
	case KeyCountryCode:
		v = c.CountryCode
	case KeyMemberMobile:
		v = c.MemberMobile
	case KeyNonMemberMobile:
		v = c.NonMemberMobile
	case KeyDefaultMobile:
		v = c.DefaultMobile
	case KeyRazorpayKey:
		v = c.RazorpayKey
	case KeyRazorpaySecret:
		v = c.RazorpaySecret
	case KeyReportPath:
		v = c.ReportPath
	case KeyEnableLogging:
		v = strconv.FormatBool(c.EnableLogging)
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown setting %q", name)
	}
	if v == "" {
		return "", dErrors.Newf(dErrors.CodeContextMissing, "setting %q is not configured", name)
	}
	return v, nil
}

// Settings is the narrow read-only view flow steps depend on.
type Settings interface {
	Lookup(name string) (string, error)
}

// Static is a map-backed Settings used by tests and ad-hoc runs.
type Static map[string]string

func (s Static) Lookup(name string) (string, error) {
	v, ok := s[name]
	if !ok || v == "" {
		return "", dErrors.Newf(dErrors.CodeContextMissing, "setting %q is not configured", name)
	}
	return v, nil
}
