package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snehjoshi/smq/internal/config"
	"github.com/snehjoshi/smq/internal/metrics"
	"github.com/snehjoshi/smq/internal/node"
	"github.com/snehjoshi/smq/internal/queue"
	transphttp "github.com/snehjoshi/smq/internal/transport/http"
	"github.com/snehjoshi/smq/pkg/client"
)

// ─── test server helpers ──────────────────────────────────────────────────────

// newTestServer spins up a real smq stack behind httptest.Server and returns
// its URL. Resources are released in t.Cleanup.
func newTestServer(t *testing.T, authKey string) string {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.Key = authKey

	n, err := node.New("auto")
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	srv := transphttp.New(queue.NewStore(cfg.Queue.InitialCapacity), n, cfg, &metrics.Registry{})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func ctx() context.Context { return context.Background() }

// ─── Push / Pop ───────────────────────────────────────────────────────────────

func TestClient_PushPop(t *testing.T) {
	c := client.New(newTestServer(t, ""))

	for _, m := range []string{"A", "B"} {
		if err := c.Push(ctx(), "orders", []byte(m)); err != nil {
			t.Fatalf("Push(%s): %v", m, err)
		}
	}
	for _, want := range []string{"A", "B"} {
		got, err := c.Pop(ctx(), "orders")
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if string(got) != want {
			t.Errorf("Pop: want %q, got %q", want, got)
		}
	}

	_, err := c.Pop(ctx(), "orders")
	if !errors.Is(err, client.ErrNoMessage) {
		t.Fatalf("Pop on drained channel: want ErrNoMessage, got %v", err)
	}
}

func TestClient_Pop_UnknownChannel(t *testing.T) {
	c := client.New(newTestServer(t, ""))
	if _, err := c.Pop(ctx(), "unknown"); !errors.Is(err, client.ErrNoMessage) {
		t.Fatalf("want ErrNoMessage, got %v", err)
	}
}

func TestClient_Auth(t *testing.T) {
	url := newTestServer(t, "s3cret")

	err := client.New(url).Push(ctx(), "c", []byte("x"))
	var ae *client.APIError
	if !errors.As(err, &ae) || ae.StatusCode != http.StatusBadRequest || ae.Message != "auth header required" {
		t.Fatalf("no key: want 400 auth header required, got %v", err)
	}

	err = client.New(url, client.WithAuthKey("wrong")).Push(ctx(), "c", []byte("x"))
	if !client.IsForbidden(err) {
		t.Fatalf("wrong key: want 403, got %v", err)
	}

	ok := client.New(url, client.WithAuthKey("s3cret"))
	if err := ok.Push(ctx(), "c", []byte("x")); err != nil {
		t.Fatalf("right key: %v", err)
	}
	if got, err := ok.Pop(ctx(), "c"); err != nil || string(got) != "x" {
		t.Fatalf("Pop with key: got %q, %v", got, err)
	}
}

func TestClient_Info(t *testing.T) {
	c := client.New(newTestServer(t, "") + "/")
	info, err := c.Info(ctx())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !strings.Contains(info, "Effective initial capacity: 10000.") {
		t.Errorf("unexpected info:\n%s", info)
	}
}

func TestClient_APIError_PlainText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	_, err := client.New(ts.URL).Pop(ctx(), "c")
	var ae *client.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("want *APIError, got %T %v", err, err)
	}
	if ae.StatusCode != http.StatusInternalServerError || ae.Message != "boom" {
		t.Errorf("got %+v", ae)
	}
	if errors.Is(err, client.ErrNoMessage) {
		t.Error("a 500 must not be reported as ErrNoMessage")
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(ts.Close)

	cctx, cancel := context.WithTimeout(ctx(), 50*time.Millisecond)
	defer cancel()

	if err := client.New(ts.URL).Push(cctx, "c", []byte("x")); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
