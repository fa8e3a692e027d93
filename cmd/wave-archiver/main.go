// Command wave-archiver copies every wave of a WavePortal contract into PostgreSQL and keeps
// following new ones. It reports liveness over the gRPC health protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/and161185/wave-portal/internal/config"
	"github.com/and161185/wave-portal/internal/contract"
	"github.com/and161185/wave-portal/internal/convert"
	"github.com/and161185/wave-portal/internal/limiter"
	"github.com/and161185/wave-portal/internal/migrate"
	"github.com/and161185/wave-portal/internal/repository/postgres"
	grpcserver "github.com/and161185/wave-portal/internal/server/grpc"
	"github.com/and161185/wave-portal/internal/service"
	"github.com/and161185/wave-portal/internal/wallet"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and archives until interrupted.
func main() {
	cfg, err := config.NewArchiver()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	flag.StringVar(&cfg.RPCURL, "rpc", cfg.RPCURL, "chain node URL (ws:// for live events)")
	flag.StringVar(&cfg.Contract, "contract", cfg.Contract, "WavePortal contract address")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN")
	flag.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address")
	flag.DurationVar(&cfg.ResubscribeEvery, "resubscribe-every", cfg.ResubscribeEvery, "minimum delay between reconnects")
	maxBatch := flag.Int("max-batch", 500, "max waves per insert transaction")
	dev := flag.Bool("dev", false, "enable server reflection (dev only)")
	probe := flag.Bool("probe", false, "query a running archiver's health and exit")
	recent := flag.Int("recent", 0, "print the N most recent archived waves and exit")
	flag.Parse()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *probe {
		os.Exit(runProbe(ctx, cfg.HealthAddr))
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("contract", cfg.Contract),
		zap.String("health", cfg.HealthAddr),
	)

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.Open(ctx, cfg.DSN, "wave-archiver")
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()
	repo := postgres.NewWaveRepo(db)

	chain, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		logger.Fatal("dial chain", zap.String("url", cfg.RPCURL), zap.Error(err))
	}
	defer chain.Close()

	gw, err := contract.New(wallet.NewReadOnly(chain), "", common.HexToAddress(cfg.Contract), logger)
	if err != nil {
		logger.Fatal("bind contract", zap.Error(err))
	}

	health := grpcserver.NewHealth()
	lim := limiter.NewRate(cfg.ResubscribeEvery, 1)
	svc := service.NewArchiveService(gw, repo, lim, health, logger, *maxBatch)

	if *recent > 0 {
		printRecent(ctx, svc, *recent, logger)
		return
	}

	lis, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	s := grpcserver.NewServer(logger, health, *dev)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("health listening", zap.String("addr", cfg.HealthAddr))
		errCh <- grpcserver.Serve(ctx, s, lis, 5*time.Second)
	}()
	go func() { errCh <- svc.Run(ctx) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			logger.Error("archiver stopped", zap.Error(err))
			stop()
		}
	}
	health.Shutdown()
	logger.Info("shutdown complete")
}

func runProbe(ctx context.Context, addr string) int {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	resp, err := grpcserver.Probe(ctx, addr, grpcserver.ServiceName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(protojson.Format(resp))
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return 1
	}
	return 0
}

func printRecent(ctx context.Context, svc *service.ArchiveService, n int, log *zap.Logger) {
	total, err := svc.Count(ctx)
	if err != nil {
		log.Fatal("count", zap.Error(err))
	}
	waves, err := svc.Recent(ctx, n)
	if err != nil {
		log.Fatal("recent", zap.Error(err))
	}
	fmt.Printf("%d archived\n", total)
	for _, w := range waves {
		e := convert.FromArchived(w)
		fmt.Printf("%s  %s  %s\n", e.SubmittedAt.Local().Format(time.DateTime), e.Author.Short(), e.Message)
	}
}
