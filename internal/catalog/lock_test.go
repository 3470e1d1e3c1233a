package catalog_test

import (
	"context"
	"errors"
	"testing"

	"tracksync/internal/catalog"
	"tracksync/internal/services"
	"tracksync/internal/testsupport"
)

func TestLockIsExclusiveUntilReleased(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first := testsupport.MustOpenCatalog(t, cfg)
	second, err := catalog.Open(ctx, catalog.FromConfig(cfg))
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	release, err := first.Lock(ctx)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	if _, err := second.Lock(ctx); !errors.Is(err, services.ErrLockedCatalog) {
		t.Fatalf("expected locked catalog error, got %v", err)
	}

	release()
	releaseSecond, err := second.Lock(ctx)
	if err != nil {
		t.Fatalf("expected lock after release: %v", err)
	}
	releaseSecond()
}

func TestLockHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)

	release, err := cat.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()

	other := testsupport.MustOpenCatalog(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := other.Lock(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
