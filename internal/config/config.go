package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/backup"
	"github.com/dukerupert/habitual/internal/push"
)

// Config holds the settings shared by every command. Each field can be set
// by flag or by its HABITUAL_* environment variable.
type Config struct {
	DBPath           string `name:"db" help:"SQLite database path." default:"habitual.db" env:"HABITUAL_DB_PATH"`
	LogLevel         string `help:"Log level (debug, info, warn, error)." default:"info" env:"HABITUAL_LOG_LEVEL"`
	LogFormat        string `help:"Log output format." enum:"text,json" default:"text" env:"HABITUAL_LOG_FORMAT"`
	SuccessThreshold int    `help:"Completions needed for a day to count as a success." default:"5" env:"HABITUAL_SUCCESS_THRESHOLD"`
	HeatmapDays      int    `help:"Default heatmap window in days." default:"90" env:"HABITUAL_HEATMAP_DAYS"`
	Timezone         string `help:"IANA timezone used to decide what today is." default:"Local" env:"HABITUAL_TIMEZONE"`
}

// ServeConfig adds the HTTP settings used by the serve command.
type ServeConfig struct {
	Port               string `help:"HTTP listen port." default:"8080" env:"HABITUAL_PORT"`
	AnalyticsCacheSize int    `help:"Entries in the analytics cache; 0 disables it." default:"0" env:"HABITUAL_ANALYTICS_CACHE_SIZE"`
	CookieSecure       bool   `help:"Mark session cookies Secure." env:"HABITUAL_COOKIE_SECURE"`
	LoginRateLimit     int    `help:"Login and register attempts per IP per minute." default:"10" env:"HABITUAL_LOGIN_RATE_LIMIT"`

	BackupInterval  time.Duration `help:"Interval between scheduled backups; 0 disables them." default:"0s" env:"HABITUAL_BACKUP_INTERVAL"`
	BackupRetention time.Duration `help:"Age after which scheduled backups are pruned." default:"720h" env:"HABITUAL_BACKUP_RETENTION"`

	PushConfig   `embed:"" prefix:""`
	BackupConfig `embed:"" prefix:""`
}

// PushConfig enables web push reminders when both VAPID keys are set.
type PushConfig struct {
	VAPIDPublicKey  string `name:"vapid-public-key" help:"VAPID public key for web push." env:"HABITUAL_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `name:"vapid-private-key" help:"VAPID private key for web push." env:"HABITUAL_VAPID_PRIVATE_KEY"`
	PushSubscriber  string `help:"Contact URI sent to push services." default:"mailto:noreply@habitual.local" env:"HABITUAL_PUSH_SUBSCRIBER"`
	ReminderHour    int    `help:"Local hour (0-23) after which unfinished days get a reminder." default:"20" env:"HABITUAL_REMINDER_HOUR"`
}

// BackupConfig points at S3-compatible storage for encrypted snapshots.
type BackupConfig struct {
	S3Endpoint       string `name:"s3-endpoint" help:"S3-compatible endpoint URL." env:"HABITUAL_S3_ENDPOINT"`
	S3Bucket         string `name:"s3-bucket" help:"Bucket for backups." env:"HABITUAL_S3_BUCKET"`
	S3Region         string `name:"s3-region" help:"Bucket region." default:"us-east-1" env:"HABITUAL_S3_REGION"`
	S3AccessKey      string `name:"s3-access-key" help:"S3 access key." env:"HABITUAL_S3_ACCESS_KEY"`
	S3SecretKey      string `name:"s3-secret-key" help:"S3 secret key." env:"HABITUAL_S3_SECRET_KEY"`
	BackupPrefix     string `help:"Key prefix for backup objects." default:"habitual" env:"HABITUAL_BACKUP_PREFIX"`
	BackupPassphrase string `help:"Passphrase used to encrypt backups." env:"HABITUAL_BACKUP_PASSPHRASE"`
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.SuccessThreshold < 1 {
		errs = append(errs, fmt.Errorf("success threshold must be at least 1, got %d", c.SuccessThreshold))
	}
	if c.HeatmapDays < 1 || c.HeatmapDays > analytics.MaxWindowDays {
		errs = append(errs, fmt.Errorf("heatmap days must be between 1 and %d, got %d", analytics.MaxWindowDays, c.HeatmapDays))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Analytics returns the analytics settings derived from c.
func (c *Config) Analytics() (analytics.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return analytics.Config{}, err
	}
	return analytics.Config{
		SuccessThreshold: c.SuccessThreshold,
		WindowDays:       c.HeatmapDays,
		Location:         loc,
	}, nil
}

func (s *ServeConfig) Validate() error {
	var errs []error
	if n, err := strconv.Atoi(s.Port); err != nil || n < 1 || n > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", s.Port))
	}
	if s.AnalyticsCacheSize < 0 {
		errs = append(errs, fmt.Errorf("analytics cache size must not be negative, got %d", s.AnalyticsCacheSize))
	}
	if s.LoginRateLimit < 1 {
		errs = append(errs, fmt.Errorf("login rate limit must be at least 1, got %d", s.LoginRateLimit))
	}
	if s.BackupInterval < 0 {
		errs = append(errs, errors.New("backup interval must not be negative"))
	}
	if s.BackupInterval > 0 {
		if s.BackupPassphrase == "" {
			errs = append(errs, errors.New("scheduled backups need a backup passphrase"))
		}
		if s.S3Bucket == "" || s.S3AccessKey == "" || s.S3SecretKey == "" {
			errs = append(errs, errors.New("scheduled backups need an S3 bucket and credentials"))
		}
	}
	if err := s.PushConfig.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *PushConfig) Validate() error {
	var errs []error
	if (p.VAPIDPublicKey == "") != (p.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("both VAPID keys must be set to enable push"))
	}
	if p.ReminderHour < 0 || p.ReminderHour > 23 {
		errs = append(errs, fmt.Errorf("reminder hour must be between 0 and 23, got %d", p.ReminderHour))
	}
	return errors.Join(errs...)
}

func (p *PushConfig) Push() push.Config {
	return push.Config{
		VAPIDPublicKey:  p.VAPIDPublicKey,
		VAPIDPrivateKey: p.VAPIDPrivateKey,
		Subscriber:      p.PushSubscriber,
	}
}

func (b *BackupConfig) Backup() backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.S3Endpoint,
			Bucket:    b.S3Bucket,
			Region:    b.S3Region,
			AccessKey: b.S3AccessKey,
			SecretKey: b.S3SecretKey,
		},
		Prefix: b.BackupPrefix,
	}
}
