package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/security"
	"github.com/kbukum/automl/security/tlstest"
)

// newTestClient creates a Client backed by miniredis.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() { mini.Close() })

	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.NewNop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mini
}

type snapshot struct {
	Objective string    `json:"objective"`
	Scores    []float64 `json:"scores,omitempty"`
}

// --- Config tests ---

func TestNew_RequiresEnabledAndAddr(t *testing.T) {
	if _, err := New(Config{Addr: "localhost:6379"}, logger.NewNop()); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected a configuration error for a disabled config, got %v", err)
	}
	if _, err := New(Config{Enabled: true}, logger.NewNop()); !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Errorf("expected a missing field error, got %v", err)
	}
	cfg := Config{Enabled: true, Addr: "x:1", DialTimeout: "soon"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected an invalid input error, got %v", err)
	}
}

func TestConfig_ValidatesTLS(t *testing.T) {
	cfg := Config{Enabled: true, Addr: "x:1", TLS: &security.TLSConfig{CertFile: "cert.pem"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected an invalid input error, got %v", err)
	}
}

// --- Client tests ---

func TestClient_TLS(t *testing.T) {
	certs := tlstest.Generate(t)
	mini, err := miniredis.RunTLS(certs.ServerConfig())
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client, err := New(Config{
		Enabled: true,
		Addr:    mini.Addr(),
		TLS:     &security.TLSConfig{CAFile: certs.CAFile, ServerName: "localhost"},
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping over tls: %v", err)
	}
}

func TestClient_Queue(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if err := client.Push(ctx, "tasks", "first", "second"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if n, _ := client.Len(ctx, "tasks"); n != 2 {
		t.Fatalf("expected 2 queued, got %d", n)
	}
	queue, raw, err := client.Pop(ctx, time.Second, "tasks")
	if err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if queue != "tasks" || string(raw) != "first" {
		t.Errorf("expected FIFO order, got %s/%s", queue, raw)
	}
	_, raw, _ = client.Pop(ctx, time.Second, "tasks")
	if string(raw) != "second" {
		t.Errorf("expected second, got %s", raw)
	}
}

func TestClient_PopTimeout(t *testing.T) {
	client, _ := newTestClient(t)
	_, _, err := client.Pop(context.Background(), 50*time.Millisecond, "empty")
	if !IsNil(err) {
		t.Fatalf("expected ErrNil on timeout, got %v", err)
	}
}

func TestClient_BytesAndJSON(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	payload := []byte{0x00, 0xff, 0x10}
	if err := client.Set(ctx, "workload", payload, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := client.GetBytes(ctx, "workload")
	if err != nil || string(got) != string(payload) {
		t.Fatalf("expected binary round trip, got %v (%v)", got, err)
	}
	if mini.TTL("workload") != time.Minute {
		t.Errorf("expected a one minute TTL, got %v", mini.TTL("workload"))
	}

	ok, _ := client.SetNX(ctx, "workload", "other", 0)
	if ok {
		t.Error("expected SetNX to keep the existing value")
	}

	if err := client.SetJSON(ctx, "json", snapshot{Objective: "R2"}, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	var s snapshot
	if err := client.GetJSON(ctx, "json", &s); err != nil || s.Objective != "R2" {
		t.Fatalf("expected R2, got %+v (%v)", s, err)
	}
	if err := client.GetJSON(ctx, "missing", &s); !IsNil(err) {
		t.Errorf("expected ErrNil for a missing key, got %v", err)
	}
	if !client.IsAvailable(ctx) {
		t.Error("expected the client to be available")
	}
	client.Close()
	if client.IsAvailable(ctx) {
		t.Error("expected a closed client to be unavailable")
	}
}

// --- TypedStore tests ---

func TestTypedStore_SaveAndLoad(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[snapshot](client, "ledger")
	ctx := context.Background()

	if err := store.Save(ctx, "s1", &snapshot{Objective: "F1", Scores: []float64{0.5, 0.7}}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.Objective != "F1" || len(got.Scores) != 2 {
		t.Fatalf("expected the snapshot back, got %+v", got)
	}
}

func TestTypedStore_LoadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[snapshot](client, "ledger")

	got, err := store.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}
}

func TestTypedStore_Delete(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[snapshot](client, "ledger")
	ctx := context.Background()

	_ = store.Save(ctx, "s1", &snapshot{Objective: "MAE"}, 0)
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := store.Load(ctx, "s1"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[snapshot](client, "ledger")
	ctx := context.Background()

	if err := store.Save(ctx, "s1", &snapshot{}, 2*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got, _ := store.Load(ctx, "s1"); got == nil {
		t.Fatal("expected value before TTL")
	}
	mini.FastForward(3 * time.Second)
	if got, _ := store.Load(ctx, "s1"); got != nil {
		t.Fatalf("expected nil after TTL expiration, got %+v", got)
	}
}

func TestTypedStore_KeyPrefix(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	_ = NewTypedStore[snapshot](client, "automl").Save(ctx, "s1", &snapshot{}, 0)
	if raw, err := mini.Get("automl:s1"); err != nil || raw == "" {
		t.Fatalf("expected prefixed key in redis, err: %v", err)
	}
	_ = NewTypedStore[snapshot](client, "").Save(ctx, "bare", &snapshot{}, 0)
	if raw, err := mini.Get("bare"); err != nil || raw == "" {
		t.Fatalf("expected bare key in redis, err: %v", err)
	}
}

func TestTypedStore_DecodeError(t *testing.T) {
	client, mini := newTestClient(t)
	_ = mini.Set("ledger:bad", "{not json")
	_, err := NewTypedStore[snapshot](client, "ledger").Load(context.Background(), "bad")
	if !errors.HasCode(err, errors.ErrCodeStorage) {
		t.Fatalf("expected a storage error, got %v", err)
	}
}
