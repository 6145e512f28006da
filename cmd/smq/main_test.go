package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snehjoshi/smq/internal/config"
	"github.com/snehjoshi/smq/internal/node"
	"github.com/snehjoshi/smq/internal/queue"
	transphttp "github.com/snehjoshi/smq/internal/transport/http"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	n, err := node.New("auto")
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	ts := httptest.NewServer(transphttp.New(queue.NewStore(4), n, cfg, nil).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_PushPop(t *testing.T) {
	url := newTestServer(t)

	if out, err := run(t, "", "--server", url, "push", "orders", "A"); err != nil || out != "ok\n" {
		t.Fatalf("push A: out %q err %v", out, err)
	}
	if _, err := run(t, "from-stdin", "--server", url, "push", "orders"); err != nil {
		t.Fatalf("push from stdin: %v", err)
	}

	if out, err := run(t, "", "--server", url, "pop", "orders"); err != nil || out != "A" {
		t.Fatalf("pop 1: out %q err %v", out, err)
	}
	if out, err := run(t, "", "--server", url, "pop", "orders"); err != nil || out != "from-stdin" {
		t.Fatalf("pop 2: out %q err %v", out, err)
	}

	_, err := run(t, "", "--server", url, "pop", "orders")
	if err == nil || !strings.Contains(err.Error(), "no message") {
		t.Fatalf("pop on empty channel: want no message error, got %v", err)
	}
}

func TestCLI_Info(t *testing.T) {
	url := newTestServer(t)
	out, err := run(t, "", "--server", url, "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "Effective initial capacity: 4.") {
		t.Errorf("unexpected info output:\n%s", out)
	}
}

func TestCLI_PushRequiresChannel(t *testing.T) {
	if _, err := run(t, "", "push"); err == nil {
		t.Fatal("expected argument error")
	}
}
