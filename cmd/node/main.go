// Command ringd runs a single Chord ring node: it loads configuration,
// wires up logging, tracing, the RPC transport, and the routing core,
// then joins an existing ring (or starts a new one) and runs until
// terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chordring/internal/bootstrap"
	"chordring/internal/config"
	"chordring/internal/key"
	"chordring/internal/logger"
	zapfactory "chordring/internal/logger/zap"
	"chordring/internal/ring"
	"chordring/internal/rpc"
	"chordring/internal/telemetry"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = logger.NopLogger{}
	}

	space, err := key.NewSpace(cfg.Ring.IDBits)
	if err != nil {
		log.Fatalf("invalid identifier space: %v", err)
	}

	lis, err := net.Listen("tcp", cfg.Node.Bind)
	if err != nil {
		lgr.Error("failed to bind listener", logger.F("bind", cfg.Node.Bind), logger.F("err", err))
		os.Exit(1)
	}
	defer func() { _ = lis.Close() }()

	advertised := fmt.Sprintf("%s:%d", cfg.Node.Host, cfg.Node.Port)
	var id key.ID
	if cfg.Node.ID != "" {
		id, err = space.IDFromHex(cfg.Node.ID)
		if err != nil {
			lgr.Error("invalid node.id in configuration", logger.F("err", err))
			os.Exit(1)
		}
	} else {
		id = space.IDFromString(advertised)
	}
	self := ring.Descriptor{Addr: advertised, ID: id}
	lgr = lgr.Named("node").WithNode(self)
	lgr.Info("node initializing", logger.F("bind", cfg.Node.Bind), logger.F("id_bits", cfg.Ring.IDBits))

	shutdownTracing, err := telemetry.Init(context.Background(), cfg.Telemetry.Tracing, "chordring-node", id.Hex(false))
	if err != nil {
		lgr.Error("failed to initialize telemetry", logger.F("err", err))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	client := rpc.NewClient(space, cfg.Ring.RPCTimeout, lgr.Named("client"), cfg.Telemetry.Tracing.Enabled)
	defer func() { _ = client.Close() }()

	node := ring.New(self, space, client, lgr)

	var serverOpts []grpc.ServerOption
	if cfg.Telemetry.Tracing.Enabled {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler(
			otelgrpc.WithTracerProvider(otel.GetTracerProvider()),
			otelgrpc.WithPropagators(otel.GetTextMapPropagator()),
		)))
	}
	server := rpc.NewServer(node, lgr, serverOpts...)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(lis) }()
	lgr.Info("rpc server listening", logger.F("addr", lis.Addr().String()))

	register, err := newBootstrap(cfg.Bootstrap)
	if err != nil {
		lgr.Error("failed to initialize bootstrap", logger.F("err", err))
		server.Stop()
		os.Exit(1)
	}

	joinCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	peers, err := register.Discover(joinCtx)
	cancel()
	if err != nil {
		lgr.Error("failed to discover bootstrap peers", logger.F("err", err))
		server.Stop()
		os.Exit(1)
	}

	if len(peers) == 0 {
		lgr.Info("no bootstrap peers found, starting new ring")
	} else {
		joined := false
		var joinErr error
		for _, peerAddr := range peers {
			if peerAddr == advertised {
				continue
			}
			peerID := space.IDFromString(peerAddr)
			joinCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			joinErr = node.Join(joinCtx, ring.Descriptor{Addr: peerAddr, ID: peerID})
			cancel()
			if joinErr == nil {
				joined = true
				break
			}
			lgr.Warn("join attempt failed, trying next peer", logger.F("peer", peerAddr), logger.F("err", joinErr))
		}
		if !joined {
			lgr.Error("failed to join ring through any bootstrap peer", logger.F("err", joinErr))
			server.Stop()
			os.Exit(1)
		}
		lgr.Info("joined ring")
	}

	regCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := register.Register(regCtx, advertised); err != nil {
		lgr.Warn("failed to register with bootstrap directory", logger.F("err", err))
	}
	cancel()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := register.Deregister(ctx, advertised); err != nil {
			lgr.Warn("failed to deregister from bootstrap directory", logger.F("err", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	node.StartStabilizer(ctx, cfg.Ring.StabilizationInterval)
	lgr.Info("stabilizer started", logger.F("interval", cfg.Ring.StabilizationInterval))

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		done := make(chan struct{})
		go func() { server.GracefulStop(); close(done) }()
		select {
		case <-done:
			lgr.Info("rpc server stopped gracefully")
		case <-shutdownCtx.Done():
			lgr.Warn("graceful stop timed out, forcing shutdown")
			server.Stop()
		}
		cancel()

	case err := <-serveErr:
		lgr.Error("rpc server terminated unexpectedly", logger.F("err", err))
		stop()
		os.Exit(1)
	}
}

func newBootstrap(cfg config.BootstrapConfig) (bootstrap.Bootstrap, error) {
	switch cfg.Mode {
	case "route53":
		return bootstrap.NewRoute53(bootstrap.Route53Config{
			HostedZoneID: cfg.Route53.HostedZoneID,
			RecordName:   cfg.Route53.RecordName,
			TTL:          cfg.Route53.TTLSeconds,
		})
	case "static", "":
		return bootstrap.NewStatic(cfg.Peers), nil
	default:
		return nil, fmt.Errorf("unsupported bootstrap mode %q", cfg.Mode)
	}
}
