package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/realfolio-backend/internal/adapter/grpc"
	"github.com/simaogato/realfolio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/realfolio-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/realfolio-backend/internal/config"
	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/logger"
	"github.com/simaogato/realfolio-backend/internal/scheduler"
	"github.com/simaogato/realfolio-backend/internal/usecase/ledger"
	"github.com/simaogato/realfolio-backend/internal/usecase/normalizer"
	"github.com/simaogato/realfolio-backend/internal/usecase/rates"
	"github.com/simaogato/realfolio-backend/internal/usecase/returns"
	"github.com/simaogato/realfolio-backend/internal/usecase/seeder"
)

// repositories groups the stores of the selected driver
type repositories struct {
	ledger domain.LedgerRepository
	series domain.RateSeriesRepository
	retry  domain.RetryRepository
	close  func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	profile, err := config.LoadProfile(cfg.ProfileFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.ProfileFile).Msg("Failed to load ledger profile")
	}

	ctx := context.Background()

	// 1. Setup Database
	repos, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open store")
	}
	defer repos.close()

	// 2. Register the rate series the profile depends on
	definitions := make([]seeder.SeriesDefinition, 0, len(profile.Series))
	for _, s := range profile.Series {
		definitions = append(definitions, seeder.SeriesDefinition{Name: s.Name, Kind: s.Kind})
	}
	if err := seeder.NewSeriesSeeder(repos.series, definitions, log).Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed rate series")
	}

	// 3. Initialize Services (Use Cases)
	profiles := profile.CategoryProfiles()
	rateService := rates.NewRateService(repos.series, profile.FallbackMonthlyInflation, log)
	ledgerService := ledger.NewReconciliationService(
		repos.ledger, repos.retry, rateService, profiles, profile.QuantityEpsilon, log)

	classifier, err := normalizer.NewClassifier(profile.Classification)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid classification rules")
	}
	orderNormalizer := normalizer.NewNormalizer(classifier,
		profile.CurrencyCode(domain.CurrencyPrimary), profile.CurrencyCode(domain.CurrencySecondary))

	priceBoard := returns.NewPriceBoard(cfg.PriceTTL)
	reportService := returns.NewReportService(ledgerService, rateService, priceBoard, profiles,
		profile.PrimaryCPI, profile.SecondaryCPI, log)

	// 4. Schedule background jobs
	jobs := scheduler.New(log)
	if err := jobs.AddJob(cfg.ExpirySchedule, scheduler.NewExpiryJob(ledgerService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule option expiry")
	}
	if err := jobs.AddJob(cfg.RetrySchedule, scheduler.NewRetryJob(ledgerService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule pending retries")
	}
	jobs.Start()

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)

	grpcAdapter := grpcadapter.NewServer(ledgerService, orderNormalizer, rateService, reportService, priceBoard)
	grpcadapter.RegisterLedgerServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Str("store", cfg.StoreDriver).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, jobs, log)
}

// openStore connects the configured driver and makes sure its schema exists
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.NewDB(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("SQLite store ready")
		return &repositories{
			ledger: sqlite.NewLedgerRepository(db),
			series: sqlite.NewRateSeriesRepository(db),
			retry:  sqlite.NewRetryRepository(db),
			close:  db.Close,
		}, nil

	default:
		db, err := postgres.NewDB(cfg.DBConnStr)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Postgres store ready")
		return &repositories{
			ledger: postgres.NewLedgerRepository(db),
			series: postgres.NewRateSeriesRepository(db),
			retry:  postgres.NewRetryRepository(db),
			close:  db.Close,
		}, nil
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, jobs *scheduler.Scheduler, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	jobs.Stop()
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")
}
