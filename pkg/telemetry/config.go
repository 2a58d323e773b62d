package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the observability settings of one nexus process.
type Config struct {
	ServiceName    string `validate:"required"`
	ServiceVersion string `validate:"required"`

	Logging LoggingConfig
	Tracing TracingConfig
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging. Results go to stdout, so
// logs default to stderr.
type LoggingConfig struct {
	Level        string `validate:"oneof=trace debug info warn error fatal"`
	Format       string `validate:"oneof=console json"`
	Output       string
	EnableCaller bool
}

// TracingConfig configures span export. The otlp exporter needs an
// Endpoint; stdout pretty-prints spans to stderr.
type TracingConfig struct {
	Enabled            bool
	Exporter           string `validate:"omitempty,oneof=otlp stdout none"`
	Endpoint           string
	SamplingRate       float64 `validate:"gte=0,lte=1"`
	MaxExportBatchSize int     `validate:"gte=0"`
	ExportTimeout      time.Duration
	Headers            map[string]string
	Insecure           bool
}

// MetricsConfig configures the Prometheus registry. An empty ListenAddress
// collects without serving.
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
	Path          string
	Namespace     string `validate:"required_if=Enabled true"`

	// DefaultHistogramBuckets are the operation latency buckets in seconds.
	DefaultHistogramBuckets []float64
}

// DefaultConfig returns the CLI settings: console logs on stderr, tracing
// off, metrics collected but not served.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "nexus",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Exporter:           "none",
			SamplingRate:       1.0,
			MaxExportBatchSize: 512,
			ExportTimeout:      30 * time.Second,
			Insecure:           true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "nexus",
			// A single Monte Carlo run of 1000 samples takes low milliseconds.
			DefaultHistogramBuckets: []float64{
				0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5,
			},
		},
	}
}

// DevelopmentConfig is DefaultConfig with debug logs, caller info and spans
// printed to stderr.
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.EnableCaller = true
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "stdout"
	return cfg
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints, then the cross-field rules the tags
// cannot express. Every failed field is reported.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("telemetry %s: %s", fieldPath(fe), describe(fe)))
		}
	}

	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "":
			errs = append(errs, errors.New("telemetry Tracing.Exporter: required when tracing is enabled"))
		case "otlp":
			if c.Tracing.Endpoint == "" {
				errs = append(errs, errors.New("telemetry Tracing.Endpoint: required for the otlp exporter"))
			}
		}
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("telemetry Metrics.Path: %q must start with / when serving", c.Metrics.Path))
	}

	return errors.Join(errs...)
}

// fieldPath drops the root type name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "required"
	case "oneof":
		return fmt.Sprintf("%v is not one of [%s]", fe.Value(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%v must be %s %s", fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
