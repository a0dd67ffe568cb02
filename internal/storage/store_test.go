package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

const testWindow = 24 * time.Hour

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	st, err := Open(Config{
		Driver: driver,
		Path:   filepath.Join(t.TempDir(), "cooldowns.db"),
		Window: testWindow,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestShouldSendLifecycle(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"sqlite", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			st := openTestStore(t, driver)
			ctx := context.Background()
			t0 := time.Unix(1700000000, 0)

			// Never-seen user: permit and record.
			ok, err := st.ShouldSend(ctx, 42, t0)
			if err != nil {
				t.Fatalf("ShouldSend: %v", err)
			}
			if !ok {
				t.Fatal("expected permit for unseen user")
			}
			last, found, err := st.LastSent(ctx, 42)
			if err != nil || !found {
				t.Fatalf("LastSent: found=%v err=%v", found, err)
			}
			if !last.Equal(t0) {
				t.Fatalf("LastSent = %v, want %v", last, t0)
			}

			// One hour later: deny, record unchanged.
			ok, err = st.ShouldSend(ctx, 42, t0.Add(time.Hour))
			if err != nil {
				t.Fatalf("ShouldSend: %v", err)
			}
			if ok {
				t.Fatal("expected deny inside cooldown window")
			}
			// Repeated denials stay side-effect free.
			for i := 0; i < 3; i++ {
				if ok, _ := st.ShouldSend(ctx, 42, t0.Add(2*time.Hour)); ok {
					t.Fatal("expected deny on repeat inside window")
				}
			}
			last, _, _ = st.LastSent(ctx, 42)
			if !last.Equal(t0) {
				t.Fatalf("denied calls mutated record: %v", last)
			}

			// Past the window: permit again, record moves forward.
			t1 := t0.Add(testWindow + time.Hour)
			ok, err = st.ShouldSend(ctx, 42, t1)
			if err != nil {
				t.Fatalf("ShouldSend: %v", err)
			}
			if !ok {
				t.Fatal("expected permit after window elapsed")
			}
			last, _, _ = st.LastSent(ctx, 42)
			if !last.Equal(t1) {
				t.Fatalf("LastSent = %v, want %v", last, t1)
			}

			// Exactly at the boundary counts as elapsed.
			ok, err = st.ShouldSend(ctx, 42, t1.Add(testWindow))
			if err != nil {
				t.Fatalf("ShouldSend: %v", err)
			}
			if !ok {
				t.Fatal("expected permit exactly at window boundary")
			}

			// Other users are independent.
			if ok, _ := st.ShouldSend(ctx, 7, t0); !ok {
				t.Fatal("expected permit for a different user")
			}
		})
	}
}

func TestShouldSendConcurrentSinglePermit(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"sqlite", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			st := openTestStore(t, driver)
			ctx := context.Background()
			now := time.Unix(1700000000, 0)

			const n = 32
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				permits int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := st.ShouldSend(ctx, 1001, now)
					if err != nil {
						t.Errorf("ShouldSend: %v", err)
						return
					}
					if ok {
						mu.Lock()
						permits++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			if permits != 1 {
				t.Fatalf("got %d permits, want exactly 1", permits)
			}
		})
	}
}

func TestPruneBefore(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"sqlite", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			st := openTestStore(t, driver)
			ctx := context.Background()
			t0 := time.Unix(1700000000, 0)

			for i, at := range []time.Time{t0, t0.Add(48 * time.Hour), t0.Add(96 * time.Hour)} {
				if ok, err := st.ShouldSend(ctx, int64(i+1), at); err != nil || !ok {
					t.Fatalf("seed user %d: ok=%v err=%v", i+1, ok, err)
				}
			}

			removed, err := st.PruneBefore(ctx, t0.Add(72*time.Hour))
			if err != nil {
				t.Fatalf("PruneBefore: %v", err)
			}
			if removed != 2 {
				t.Fatalf("removed = %d, want 2", removed)
			}
			if _, found, _ := st.LastSent(ctx, 3); !found {
				t.Fatal("record newer than cutoff was pruned")
			}
			if _, found, _ := st.LastSent(ctx, 1); found {
				t.Fatal("record older than cutoff survived prune")
			}
		})
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"sqlite", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			cfg := Config{
				Driver: driver,
				Path:   filepath.Join(t.TempDir(), "cooldowns.db"),
				Window: testWindow,
			}
			ctx := context.Background()
			t0 := time.Unix(1700000000, 0)

			st, err := Open(cfg, logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if ok, err := st.ShouldSend(ctx, 42, t0); err != nil || !ok {
				t.Fatalf("seed: ok=%v err=%v", ok, err)
			}
			if err := st.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			st, err = Open(cfg, logx.Nop())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer st.Close()

			if ok, _ := st.ShouldSend(ctx, 42, t0.Add(time.Hour)); ok {
				t.Fatal("cooldown lost across reopen")
			}
			last, found, err := st.LastSent(ctx, 42)
			if err != nil || !found {
				t.Fatalf("LastSent after reopen: found=%v err=%v", found, err)
			}
			if !last.Equal(t0) {
				t.Fatalf("LastSent = %v, want %v", last, t0)
			}
		})
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "sqlite", Path: "x.db"}, logx.Nop()); err == nil {
		t.Fatal("expected error for zero window")
	}
	if _, err := Open(Config{Driver: "bolt", Path: "x.db", Window: time.Hour}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file", Window: time.Hour}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
