package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"
)

// ErrNotConfigured is returned when S3 credentials are missing.
var ErrNotConfigured = errors.New("backup not configured: S3 bucket and credentials required")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3     S3Config
	Prefix string
}

// Object is one stored snapshot.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Manager writes encrypted snapshots of the database to S3-compatible
// storage and restores them.
type Manager struct {
	db     *sql.DB
	client s3Client
	bucket string
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// NewManager returns a manager. Without a complete S3 configuration every
// operation fails with ErrNotConfigured.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	m := &Manager{
		db:     db,
		bucket: cfg.S3.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
		logger: logger,
	}
	if cfg.S3.complete() {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether S3 is configured.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

func (m *Manager) objectKey(name string) string {
	if m.prefix == "" {
		return name
	}
	return m.prefix + "/" + name
}

// Snapshot writes a consistent copy of the live database to path.
func (m *Manager) Snapshot(ctx context.Context, path string) error {
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}

// Run snapshots, encrypts and uploads the database.
func (m *Manager) Run(ctx context.Context, passphrase string) (*Object, error) {
	if m.client == nil {
		return nil, ErrNotConfigured
	}
	if passphrase == "" {
		return nil, errors.New("backup passphrase is required")
	}

	tmpDir, err := os.MkdirTemp("", "habitual-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "snapshot.db")
	if err := m.Snapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	key := m.objectKey(fmt.Sprintf("habitual-%s.db.enc", now.Format("20060102T150405Z")))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "bytes", len(sealed))
	return &Object{Key: key, Size: int64(len(sealed)), LastModified: now}, nil
}

// List returns stored snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Object, error) {
	if m.client == nil {
		return nil, ErrNotConfigured
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(m.bucket)}
	if m.prefix != "" {
		input.Prefix = aws.String(m.prefix + "/")
	}

	var objects []Object
	p := s3.NewListObjectsV2Paginator(m.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, o := range page.Contents {
			key := aws.ToString(o.Key)
			if !strings.HasSuffix(key, ".db.enc") {
				continue
			}
			objects = append(objects, Object{
				Key:          key,
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, nil
}

// Prune deletes snapshots older than retention and returns how many were
// removed. The newest snapshot is always kept.
func (m *Manager) Prune(ctx context.Context, retention time.Duration) (int, error) {
	objects, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-retention)
	removed := 0
	for i, o := range objects {
		if i == 0 || !o.LastModified.Before(cutoff) {
			continue
		}
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.bucket),
			Key:    aws.String(o.Key),
		}); err != nil {
			m.logger.Warn("delete old backup", "key", o.Key, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Restore downloads and decrypts the snapshot at key, checks its integrity
// and writes it to dst. dst must not exist; the server should be stopped
// before the restored file replaces the live database.
func (m *Manager) Restore(ctx context.Context, key, passphrase, dst string) error {
	if m.client == nil {
		return ErrNotConfigured
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("restore target %s already exists", dst)
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read download: %w", err)
	}
	plaintext, err := Decrypt(sealed, passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".partial"
	if err := os.WriteFile(tmp, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored file: %w", err)
	}
	defer os.Remove(tmp)

	if err := checkIntegrity(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("move restored file: %w", err)
	}

	m.logger.Info("backup restored", "key", key, "path", dst)
	return nil
}

func checkIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Schedule runs a backup and prune every interval until ctx is cancelled.
func (m *Manager) Schedule(ctx context.Context, interval, retention time.Duration, passphrase string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Run(ctx, passphrase); err != nil {
				m.logger.Error("scheduled backup", "error", err)
				continue
			}
			if retention > 0 {
				if n, err := m.Prune(ctx, retention); err != nil {
					m.logger.Error("prune backups", "error", err)
				} else if n > 0 {
					m.logger.Info("pruned backups", "count", n)
				}
			}
		}
	}
}
