package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCommandContextCancelsWithRequest(t *testing.T) {
	reqCtx, cancelReq := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodPost, "/queues/start", nil).WithContext(reqCtx)

	ctx, cancel := commandContext(r)
	defer cancel()

	cancelReq()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("command context did not cancel when the request ended")
	}
}

func TestCommandContextCancelsWithDaemon(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	r := httptest.NewRequest(http.MethodPost, "/queues/start", nil)
	ctx, cancel := commandContext(r)
	defer cancel()

	cancelBase()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("command context did not cancel on daemon shutdown")
	}
}

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	SetBaseContext(ctx)
	// nolint:staticcheck // SA1012: this test intentionally passes nil to verify fallback behavior
	SetBaseContext(nil)

	r := httptest.NewRequest(http.MethodPost, "/queues/start", nil)
	cmdCtx, cmdCancel := commandContext(r)
	defer cmdCancel()
	select {
	case <-cmdCtx.Done():
		t.Fatal("base context must fall back to Background after nil reset")
	case <-time.After(20 * time.Millisecond):
	}
}
