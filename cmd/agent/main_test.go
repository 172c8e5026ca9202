package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dreamware/reconcile/internal/reconcile"
)

func TestHashStringBytesDeterministic(t *testing.T) {
	v := reconcile.TimedValue[[]byte]{Value: []byte("hello")}
	a := hashStringBytes("key", v)
	b := hashStringBytes("key", v)
	if a != b {
		t.Errorf("hash not deterministic: %d != %d", a, b)
	}
}

func TestHashStringBytesSensitiveToTombstone(t *testing.T) {
	live := reconcile.TimedValue[[]byte]{Value: []byte("hello")}
	dead := reconcile.TimedValue[[]byte]{Value: []byte("hello"), Tombstone: true}
	if hashStringBytes("key", live) == hashStringBytes("key", dead) {
		t.Error("tombstone flag did not change the hash")
	}
}

func TestRunStartsAndStopsCleanly(t *testing.T) {
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.String("listen", "127.0.0.1:0", "")
	fs.String("http", "127.0.0.1:0", "")
	fs.String("peer", "", "")
	fs.String("peer-net", "", "")
	fs.Duration("tombstone-timeout", reconcile.DefaultTombstoneTimeout, "")
	cliCtx := cli.NewContext(cli.NewApp(), fs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runWithContext(ctx, cliCtx) }()

	// Give the service and HTTP listener a moment to bind, then request a
	// clean shutdown. run() should return nil once both have stopped.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after context cancellation")
	}
}

// runWithContext lets tests inject a cancelable context without going
// through signal.NotifyContext, which main's run() otherwise owns.
func runWithContext(ctx context.Context, c *cli.Context) error {
	return runWithBaseContext(ctx, c)
}

func TestMain(m *testing.M) {
	http.DefaultClient.Timeout = 5 * time.Second
	os.Exit(m.Run())
}
