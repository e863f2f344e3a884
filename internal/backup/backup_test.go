package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/habitual/internal/database"
	"github.com/dukerupert/habitual/internal/store"
)

type mockObject struct {
	data     []byte
	modified time.Time
}

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string]mockObject
	clock   func() time.Time
	putErr  error
}

func newMockS3(clock func() time.Time) *mockS3Client {
	return &mockS3Client{objects: make(map[string]mockObject), clock: clock}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = mockObject{data: data, modified: m.clock()}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(o.data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for k, o := range m.objects {
		if !strings.HasPrefix(k, aws.ToString(input.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(o.data))),
			LastModified: aws.Time(o.modified),
		})
	}
	return out, nil
}

type fixture struct {
	manager *Manager
	s3      *mockS3Client
	db      *sql.DB
	clock   *time.Time
}

func setupManager(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "live.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	m := NewManager(Config{Prefix: "/nightly/"}, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mock := newMockS3(now)
	m.client = mock
	m.bucket = "test"
	m.now = now
	return &fixture{manager: m, s3: mock, db: db, clock: &clock}
}

func TestNotConfigured(t *testing.T) {
	m := NewManager(Config{S3: S3Config{Bucket: "b"}}, nil, slog.Default())
	if m.Enabled() {
		t.Fatal("manager without credentials should be disabled")
	}
	ctx := context.Background()
	if _, err := m.Run(ctx, "pass"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Run err = %v, want ErrNotConfigured", err)
	}
	if _, err := m.List(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("List err = %v, want ErrNotConfigured", err)
	}

	m2 := NewManager(Config{S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"}}, nil, slog.Default())
	if !m2.Enabled() {
		t.Error("manager with full S3 config should be enabled")
	}
}

func TestRunAndRestore(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	users := store.NewUserStore(f.db)
	if _, err := users.Create("ada@example.com", "Ada", "password123"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	obj, err := f.manager.Run(ctx, "secret")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if obj.Key != "nightly/habitual-20260310T030000Z.db.enc" {
		t.Errorf("key = %q", obj.Key)
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := f.manager.Restore(ctx, obj.Key, "secret", dst); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var email string
	if err := restored.QueryRow(`SELECT email FROM users`).Scan(&email); err != nil {
		t.Fatalf("query restored: %v", err)
	}
	if email != "ada@example.com" {
		t.Errorf("email = %q", email)
	}
}

func TestRunRequiresPassphrase(t *testing.T) {
	f := setupManager(t)
	if _, err := f.manager.Run(context.Background(), ""); err == nil {
		t.Error("expected error for empty passphrase")
	}
}

func TestRunUploadFailure(t *testing.T) {
	f := setupManager(t)
	f.s3.putErr = errors.New("bucket gone")
	if _, err := f.manager.Run(context.Background(), "secret"); err == nil {
		t.Error("expected upload error")
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	obj, err := f.manager.Run(ctx, "secret")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := f.manager.Restore(ctx, obj.Key, "wrong", dst); !errors.Is(err, ErrDecrypt) {
		t.Errorf("err = %v, want ErrDecrypt", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("failed restore must not leave a file behind")
	}
}

func TestRestoreRefusesExistingTarget(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	obj, _ := f.manager.Run(ctx, "secret")
	dst := filepath.Join(t.TempDir(), "restored.db")
	os.WriteFile(dst, []byte("keep me"), 0600)

	if err := f.manager.Restore(ctx, obj.Key, "secret", dst); err == nil {
		t.Error("expected error when target exists")
	}
}

func TestListAndPrune(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.manager.Run(ctx, "secret"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		*f.clock = f.clock.Add(10 * 24 * time.Hour)
	}
	// Unrelated objects are ignored.
	f.s3.objects["nightly/readme.txt"] = mockObject{data: []byte("x"), modified: *f.clock}

	objects, err := f.manager.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("listed %d, want 3", len(objects))
	}
	if !objects[0].LastModified.After(objects[1].LastModified) {
		t.Error("list should be newest first")
	}

	// Now day 30: snapshots are 10, 20 and 30 days old.
	n, err := f.manager.Prune(ctx, 15*24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}

	objects, _ = f.manager.List(ctx)
	if len(objects) != 1 {
		t.Errorf("left %d, want 1", len(objects))
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	f.manager.Run(ctx, "secret")
	*f.clock = f.clock.Add(365 * 24 * time.Hour)

	n, err := f.manager.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned the only snapshot")
	}
}
