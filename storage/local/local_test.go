package local

import (
	"context"
	"strings"
	"testing"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/storage"
)

// --- Storage tests ---

func TestStorage_RoundTrip(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()

	if err := storage.PutBytes(ctx, s, "runs/a/ledger.json", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	if err := storage.PutBytes(ctx, s, "runs/a/ledger.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("PutBytes overwrite: %v", err)
	}
	got, err := storage.GetBytes(ctx, s, "runs/a/ledger.json")
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("expected the overwritten object, got %s", got)
	}

	ok, err := s.Exists(ctx, "runs/a/ledger.json")
	if err != nil || !ok {
		t.Errorf("expected the object to exist, got %v %v", ok, err)
	}
	if err := s.Delete(ctx, "runs/a/ledger.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "runs/a/ledger.json"); err != nil {
		t.Errorf("deleting a missing object should succeed, got %v", err)
	}
	if _, err := storage.GetBytes(ctx, s, "runs/a/ledger.json"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected a not found error, got %v", err)
	}
}

func TestStorage_List(t *testing.T) {
	s, _ := NewStorage(t.TempDir())
	ctx := context.Background()
	for _, p := range []string{"runs/b.json", "runs/a.json", "other/c.json"} {
		if err := storage.PutBytes(ctx, s, p, []byte("x")); err != nil {
			t.Fatalf("PutBytes: %v", err)
		}
	}
	files, err := s.List(ctx, "runs/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 || files[0].Path != "runs/a.json" || files[1].Path != "runs/b.json" {
		t.Fatalf("unexpected listing %v", files)
	}
}

func TestStorage_StaysInBase(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStorage(dir)
	if !strings.HasPrefix(s.full("../../etc/passwd"), dir) {
		t.Errorf("path escaped the base directory: %s", s.full("../../etc/passwd"))
	}
}

func TestNew_Registered(t *testing.T) {
	s, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()}, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*Storage); !ok {
		t.Errorf("expected a local storage, got %T", s)
	}
	if _, err := storage.New(context.Background(), storage.Config{Provider: "ftp"}, logger.NewNop()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected an invalid provider error, got %v", err)
	}
	if _, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderS3}, logger.NewNop()); !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Errorf("expected a missing bucket error, got %v", err)
	}
}
