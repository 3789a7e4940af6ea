// =============================================================================
// DFR Chargeback Bundler - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the application
// configuration. Every value that identifies a bucket, an object path, a
// submitter credential or a business rule lives here instead of in code.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (applyDefaults)
//   2. The YAML file passed with --config
//   3. A .env file in the working directory (LoadFromEnv only)
//   4. DFR_* environment variables (LoadFromEnv only)
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// RECOGNIZED OPTIONS
// =============================================================================

// Store backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
)

// Malformed line policies.
const (
	MalformedSkip = "skip"
	MalformedFail = "fail"
)

// Audit log modes.
const (
	AuditSummary   = "summary"
	AuditPerRecord = "per_record"
)

// Run lock backends.
const (
	LockNone     = "none"
	LockRedis    = "redis"
	LockPostgres = "postgres"
)

// DefaultReasonCodes are the dispute reason codes whose lines are candidates.
var DefaultReasonCodes = []string{
	"13.1", "07", "08", "12", "31", "34", "37", "40", "41", "42", "46", "49",
	"53", "54", "55", "59", "60", "63", "70", "71", "10.1", "10.2", "10.3",
	"10.5", "11.1", "11.2", "11.3", "12.1", "12.2", "12.3", "12.4", "12.5",
	"12.6.1", "12.6.2", "12.7", "13.2", "13.3", "13.4", "13.5", "13.6",
	"13.7", "13.8", "13.9",
}

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the complete application configuration.
type Config struct {
	// Source describes where DFR extracts are listed and read from.
	Source SourceConfig `yaml:"source"`

	// State describes where the cursor, template and audit logs live.
	State StateConfig `yaml:"state"`

	// Sinks are the upload destinations of composite artifacts.
	// Every sink must accept the artifact for a file to count as delivered.
	Sinks []SinkConfig `yaml:"sinks"`

	// MinSinks is the number of sinks that must be configured.
	// Default: 2
	MinSinks int `yaml:"min_sinks"`

	// Submission holds the processor-assigned identities used in the
	// submission header and index file.
	Submission SubmissionConfig `yaml:"submission"`

	// Filter holds the candidate and eligibility rules.
	Filter FilterConfig `yaml:"filter"`

	// Processing holds batch behavior settings.
	Processing ProcessingConfig `yaml:"processing"`

	// Lock configures run serialization.
	Lock LockConfig `yaml:"lock"`

	// Server configures the HTTP trigger.
	Server ServerConfig `yaml:"server"`

	// GCS holds Google Cloud Storage client settings.
	GCS GCSConfig `yaml:"gcs"`

	// S3 holds AWS S3 client settings.
	S3 S3Config `yaml:"s3"`
}

// SourceConfig describes the DFR source listing.
type SourceConfig struct {
	// Backend is one of local, memory, gcs, s3.
	Backend string `yaml:"backend"`

	// Bucket is the bucket name, or the root directory for the local backend.
	Bucket string `yaml:"bucket"`

	// Prefix restricts the listing.
	// Default: "paymentech/dfr_a"
	Prefix string `yaml:"prefix"`

	// NameFilter is a substring every selected object name must contain.
	// Default: the company id zero-padded to 10 digits.
	NameFilter string `yaml:"name_filter"`
}

// StateConfig describes the bundler's own bucket.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`

	// CursorObject stores the last successful run time.
	// Default: "chargeback_automation/last_run/last_run_time.txt"
	CursorObject string `yaml:"cursor_object"`

	// TemplateObject is the placeholder attachment document.
	TemplateObject string `yaml:"template_object"`

	// LogsPrefix is where audit logs are written.
	// Default: "chargeback_automation/logs/paymentech_DFRs"
	LogsPrefix string `yaml:"logs_prefix"`
}

// SinkConfig describes one upload destination.
type SinkConfig struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`

	// Prefix is the subfolder uploaded objects are placed in.
	// Default: "chargeback_automation"
	Prefix string `yaml:"prefix"`
}

// SubmissionConfig holds processor-assigned identities.
type SubmissionConfig struct {
	PresenterID string `yaml:"presenter_id"`
	Password    string `yaml:"password"`
	SubmitterID string `yaml:"submitter_id"`

	// Version is the submission format version.
	// Default: "3.0.0"
	Version string `yaml:"version"`

	// CompanyID is the merchant company id, e.g. "078319".
	CompanyID string `yaml:"company_id"`

	// CompanyName is written to the index header.
	CompanyName string `yaml:"company_name"`
}

// FilterConfig holds candidate and eligibility rules.
type FilterConfig struct {
	// ReasonCodes are matched as "|code|" inside a raw line.
	ReasonCodes []string `yaml:"reason_codes"`

	// Category is the required category token and field value.
	// Default: "RTM"
	Category string `yaml:"category"`

	// Currency is the required currency token.
	// Default: "USD"
	Currency string `yaml:"currency"`

	// AmountThreshold is the inclusive upper bound on the issuer amount.
	// Default: "-1"
	AmountThreshold string `yaml:"amount_threshold"`
}

// ProcessingConfig holds batch behavior settings.
type ProcessingConfig struct {
	// WorkDir is the parent of per-file temporary work areas.
	// Default: os.TempDir()
	WorkDir string `yaml:"work_dir"`

	// KeepArtifactsDir, when set, receives a copy of every produced artifact.
	KeepArtifactsDir string `yaml:"keep_artifacts_dir"`

	// PacingSeconds is the delay between two source files.
	PacingSeconds int `yaml:"pacing_seconds"`

	// MalformedLines is "skip" or "fail".
	// Default: "skip"
	MalformedLines string `yaml:"malformed_lines"`

	// AuditMode is "summary" or "per_record".
	// Default: "summary"
	AuditMode string `yaml:"audit_mode"`

	// Timezone is the IANA zone used to render wall-clock dates.
	// Default: "UTC"
	Timezone string `yaml:"timezone"`

	// SummaryReport enables the XLSX batch summary.
	SummaryReport bool `yaml:"summary_report"`
}

// LockConfig configures run serialization.
type LockConfig struct {
	Backend     string `yaml:"backend"`
	RedisAddr   string `yaml:"redis_addr"`
	PostgresDSN string `yaml:"postgres_dsn"`

	// Key names the lock.
	// Default: "dfr-chargeback-bundler"
	Key string `yaml:"key"`

	// TTLSeconds bounds how long a crashed run can hold the redis lock.
	// Default: 3600
	TTLSeconds int `yaml:"ttl_seconds"`
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GCSConfig holds Google Cloud Storage client settings.
type GCSConfig struct {
	// CredentialsFile is a service account JSON key.
	// Empty means application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

// S3Config holds AWS S3 client settings.
type S3Config struct {
	Region          string `yaml:"region"`
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Addr returns the listen address of the HTTP trigger.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TTL returns the lock TTL as a duration.
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Pacing returns the inter-file delay as a duration.
func (c ProcessingConfig) Pacing() time.Duration {
	return time.Duration(c.PacingSeconds) * time.Second
}

// Location resolves Timezone.
func (c ProcessingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// PaddedCompanyID returns the company id zero-padded to width.
func (c SubmissionConfig) PaddedCompanyID(width int) string {
	id := c.CompanyID
	if len(id) >= width {
		return id
	}
	return strings.Repeat("0", width-len(id)) + id
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.Source.Backend == "" {
		cfg.Source.Backend = BackendLocal
	}
	if cfg.Source.Prefix == "" {
		cfg.Source.Prefix = "paymentech/dfr_a"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = cfg.Source.Backend
	}
	if cfg.State.CursorObject == "" {
		cfg.State.CursorObject = "chargeback_automation/last_run/last_run_time.txt"
	}
	if cfg.State.LogsPrefix == "" {
		cfg.State.LogsPrefix = "chargeback_automation/logs/paymentech_DFRs"
	}
	if cfg.MinSinks == 0 {
		cfg.MinSinks = 2
	}
	for i := range cfg.Sinks {
		if cfg.Sinks[i].Prefix == "" {
			cfg.Sinks[i].Prefix = "chargeback_automation"
		}
		if cfg.Sinks[i].Name == "" {
			cfg.Sinks[i].Name = fmt.Sprintf("%s:%s", cfg.Sinks[i].Backend, cfg.Sinks[i].Bucket)
		}
	}
	if cfg.Submission.Version == "" {
		cfg.Submission.Version = "3.0.0"
	}
	if cfg.Source.NameFilter == "" && cfg.Submission.CompanyID != "" {
		cfg.Source.NameFilter = cfg.Submission.PaddedCompanyID(10)
	}
	if len(cfg.Filter.ReasonCodes) == 0 {
		cfg.Filter.ReasonCodes = append([]string(nil), DefaultReasonCodes...)
	}
	if cfg.Filter.Category == "" {
		cfg.Filter.Category = "RTM"
	}
	if cfg.Filter.Currency == "" {
		cfg.Filter.Currency = "USD"
	}
	if cfg.Filter.AmountThreshold == "" {
		cfg.Filter.AmountThreshold = "-1"
	}
	if cfg.Processing.WorkDir == "" {
		cfg.Processing.WorkDir = os.TempDir()
	}
	if cfg.Processing.MalformedLines == "" {
		cfg.Processing.MalformedLines = MalformedSkip
	}
	if cfg.Processing.AuditMode == "" {
		cfg.Processing.AuditMode = AuditSummary
	}
	if cfg.Processing.Timezone == "" {
		cfg.Processing.Timezone = "UTC"
	}
	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = LockNone
	}
	if cfg.Lock.Key == "" {
		cfg.Lock.Key = "dfr-chargeback-bundler"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 3600
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks required fields and enumerated options.
// It returns the first problem found.
func (c *Config) Validate() error {
	if err := validateBackend("source.backend", c.Source.Backend); err != nil {
		return err
	}
	if err := validateBackend("state.backend", c.State.Backend); err != nil {
		return err
	}
	if c.Source.Bucket == "" && c.Source.Backend != BackendMemory {
		return fmt.Errorf("source.bucket is required")
	}
	if c.State.Bucket == "" && c.State.Backend != BackendMemory {
		return fmt.Errorf("state.bucket is required")
	}
	if c.State.TemplateObject == "" {
		return fmt.Errorf("state.template_object is required")
	}
	if len(c.Sinks) < c.MinSinks {
		return fmt.Errorf("sinks: %d configured, %d required", len(c.Sinks), c.MinSinks)
	}
	for i, s := range c.Sinks {
		if err := validateBackend(fmt.Sprintf("sinks[%d].backend", i), s.Backend); err != nil {
			return err
		}
	}

	if c.Submission.CompanyID == "" {
		return fmt.Errorf("submission.company_id is required")
	}
	if c.Submission.PresenterID == "" || c.Submission.SubmitterID == "" {
		return fmt.Errorf("submission.presenter_id and submission.submitter_id are required")
	}
	if c.Submission.CompanyName == "" {
		return fmt.Errorf("submission.company_name is required")
	}

	if !oneOf(c.Processing.MalformedLines, MalformedSkip, MalformedFail) {
		return fmt.Errorf("processing.malformed_lines: unknown policy %q", c.Processing.MalformedLines)
	}
	if !oneOf(c.Processing.AuditMode, AuditSummary, AuditPerRecord) {
		return fmt.Errorf("processing.audit_mode: unknown mode %q", c.Processing.AuditMode)
	}
	if _, err := c.Processing.Location(); err != nil {
		return fmt.Errorf("processing.timezone: %w", err)
	}
	if c.Processing.PacingSeconds < 0 {
		return fmt.Errorf("processing.pacing_seconds must not be negative")
	}

	switch c.Lock.Backend {
	case LockNone:
	case LockRedis:
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("lock.redis_addr is required for the redis lock")
		}
	case LockPostgres:
		if c.Lock.PostgresDSN == "" {
			return fmt.Errorf("lock.postgres_dsn is required for the postgres lock")
		}
	default:
		return fmt.Errorf("lock.backend: unknown backend %q", c.Lock.Backend)
	}

	return nil
}

func validateBackend(field, backend string) error {
	if !oneOf(backend, BackendLocal, BackendMemory, BackendGCS, BackendS3) {
		return fmt.Errorf("%s: unknown backend %q", field, backend)
	}
	return nil
}

func oneOf(value string, options ...string) bool {
	for _, o := range options {
		if value == o {
			return true
		}
	}
	return false
}
