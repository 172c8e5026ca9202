// Command agent runs one replica of the reconciled key/value store: a UDP
// reconciliation service plus an HTTP admin surface over it.
//
// Configuration is read from CLI flags (urfave/cli), each with an
// environment variable fallback in the style of torua's cmd/node
// getenv/mustGetenv helpers:
//
//	--listen, RECONCILE_LISTEN       UDP reconciliation address (default ":7946")
//	--http, RECONCILE_HTTP           admin HTTP address (default ":8081")
//	--peer, RECONCILE_PEER           seed peer address, optional
//	--peer-net, RECONCILE_PEER_NET   CIDR to sample random peers from, optional
//	--tombstone-timeout              how long a delete is remembered before GC
//
// Example usage:
//
//	RECONCILE_LISTEN=:7946 RECONCILE_HTTP=:8081 ./agent
//	./agent --listen :7947 --http :8082 --peer 10.0.0.5:7946
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cespare/xxhash/v2"

	"github.com/dreamware/reconcile/internal/adminapi"
	"github.com/dreamware/reconcile/internal/reconcile"
)

// logFatal is a variable so tests can intercept process termination,
// mirroring torua's cmd/node logFatal indirection.
var logFatal = func(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Fatal(msg, fields...)
}

func main() {
	app := &cli.App{
		Name:  "agent",
		Usage: "run one replica of the reconciled key/value store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", EnvVars: []string{"RECONCILE_LISTEN"}, Value: ":7946", Usage: "UDP address for peer reconciliation traffic"},
			&cli.StringFlag{Name: "http", EnvVars: []string{"RECONCILE_HTTP"}, Value: ":8081", Usage: "HTTP address for the admin surface"},
			&cli.StringFlag{Name: "peer", EnvVars: []string{"RECONCILE_PEER"}, Usage: "seed peer address (host:port) to reconcile against at startup"},
			&cli.StringFlag{Name: "peer-net", EnvVars: []string{"RECONCILE_PEER_NET"}, Usage: "CIDR to sample random candidate peers from"},
			&cli.DurationFlag{Name: "tombstone-timeout", EnvVars: []string{"RECONCILE_TOMBSTONE_TIMEOUT"}, Value: reconcile.DefaultTombstoneTimeout, Usage: "how long a deletion is remembered before being forgotten"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWithBaseContext(ctx, c)
}

// runWithBaseContext does the actual work of run, parameterized on ctx so
// tests can drive shutdown deterministically instead of via OS signals.
func runWithBaseContext(ctx context.Context, c *cli.Context) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("agent: build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	udpAddr, err := net.ResolveUDPAddr("udp", c.String("listen"))
	if err != nil {
		return fmt.Errorf("agent: resolve --listen %q: %w", c.String("listen"), err)
	}

	cfg := reconcile.Config[string, []byte]{
		Port:             uint16(udpAddr.Port),
		ListenAddr:       udpAddr.IP,
		TombstoneTimeout: c.Duration("tombstone-timeout"),
		Less:             func(a, b string) bool { return a < b },
		HashKV:           hashStringBytes,
		Logger:           log,
	}
	if peer := c.String("peer"); peer != "" {
		ip, _, err := net.SplitHostPort(peer)
		if err != nil {
			ip = peer
		}
		if parsed := net.ParseIP(ip); parsed != nil {
			cfg.SeedPeer = parsed
		} else {
			log.Warn("could not parse --peer as an address", zap.String("peer", peer))
		}
	}
	if peerNet := c.String("peer-net"); peerNet != "" {
		_, network, err := net.ParseCIDR(peerNet)
		if err != nil {
			return fmt.Errorf("agent: parse --peer-net %q: %w", peerNet, err)
		}
		cfg.PeerNet = network
	}

	svc, err := reconcile.New(cfg)
	if err != nil {
		logFatal(log, "start reconciliation service", zap.Error(err))
		return err
	}

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- svc.Run(ctx)
	}()

	httpSrv := &http.Server{
		Addr:              c.String("http"),
		Handler:           adminapi.New(svc, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("admin http listening", zap.String("addr", c.String("http")))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logFatal(log, "admin http server", zap.Error(err))
		}
	}()

	log.Info("agent started", zap.String("udp", udpAddr.String()))
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := <-runErrCh; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("reconciliation service stopped", zap.Error(err))
	}
	log.Info("agent stopped")
	return nil
}

// hashStringBytes is the default digest used by cmd/agent's concrete
// string/[]byte instantiation of Service. internal/hrtree.DefaultHashKV
// can't be used directly here since neither string nor []byte implement
// encoding.BinaryMarshaler.
func hashStringBytes(key string, value reconcile.TimedValue[[]byte]) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(key)
	_, _ = d.Write(value.Value)
	if value.Tombstone {
		_, _ = d.Write([]byte{1})
	}
	return d.Sum64()
}
