package daemon_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"cinespin/internal/daemon"
	"cinespin/internal/httpapi"
	"cinespin/internal/testsupport"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cache := testsupport.MustOpenCache(t, cfg)
	api := httpapi.New(cfg, httpapi.Deps{Cache: cache})
	d, err := daemon.New(cfg, api, cache, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonServesUntilCancelled(t *testing.T) {
	d := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-d.Ready():
	case err := <-done:
		t.Fatalf("Run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not become ready")
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.CacheBackend != "memory" {
		t.Fatalf("unexpected cache backend %q", status.CacheBackend)
	}
	if !strings.HasSuffix(status.LockFilePath, "cinespind.lock") {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	resp, err := http.Get("http://" + status.Address + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error after cancel: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("daemon did not stop")
	}
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cache := testsupport.MustOpenCache(t, cfg)

	first, err := daemon.New(cfg, httpapi.New(cfg, httpapi.Deps{Cache: cache}), cache, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, httpapi.New(cfg, httpapi.Deps{Cache: cache}), cache, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx) }()
	select {
	case <-first.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("first daemon did not become ready")
	}

	err = second.Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("first daemon returned error: %v", err)
	}
}

func TestNewRequiresServer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error without api server")
	}
}
