package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/blob"
	"github.com/alfredjeanlab/catalog/internal/cache"
	redisx "github.com/alfredjeanlab/catalog/internal/cache/redis"
	"github.com/alfredjeanlab/catalog/internal/config"
	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/events"
	"github.com/alfredjeanlab/catalog/internal/export"
	"github.com/alfredjeanlab/catalog/internal/seed"
	"github.com/alfredjeanlab/catalog/internal/server"
)

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the catalog HTTP and gRPC servers",
	GroupID:           "system",
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		withSeed, _ := cmd.Flags().GetBool("seed")

		cfg, docs, st, err := openDocs(logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing store", "err", err)
			}
		}()
		fmt.Fprint(os.Stderr, cfg.String())

		if withSeed {
			if _, err := seed.Run(context.Background(), docs, seed.Options{Logger: logger}); err != nil {
				return err
			}
		}

		// Cache layer, optionally backed by Redis.
		cacheOpts := []cache.Option{cache.WithTTL(cfg.CacheTTL), cache.WithLogger(logger)}
		var tier *redisx.Tier
		if cfg.RedisAddr != "" {
			tier = redisx.New(redisx.Config{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, logger)
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := tier.Ping(pingCtx); err != nil {
				logger.Warn("redis unreachable, continuing with local cache only", "addr", cfg.RedisAddr, "err", err)
			}
			cancel()
			cacheOpts = append(cacheOpts, cache.WithTier(tier))
			logger.Info("redis cache tier enabled", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		}
		layer := cache.New(cacheOpts...)

		// Change events: NATS when configured, otherwise an in-process bus.
		publisher, subscriber, err := openBus(cfg, logger)
		if err != nil {
			return err
		}

		blobs, err := openBlobs(cfg, logger)
		if err != nil {
			publisher.Close()
			subscriber.Close()
			return err
		}

		srv := server.New(docs, layer, server.Options{
			Secret:       cfg.Secret,
			AuthToken:    cfg.AuthToken,
			StoreTimeout: cfg.StoreTimeout,
			Publisher:    publisher,
			Blobs:        blobs,
			Logger:       logger,
		})
		if cfg.Secret == "" {
			logger.Warn("CATALOG_SECRET not set, webhook and preview will reject every request")
		}

		consumeCtx, stopConsume := context.WithCancel(context.Background())
		var consumeWG sync.WaitGroup
		consumeWG.Add(1)
		go func() {
			defer consumeWG.Done()
			if err := srv.Invalidator().Consume(consumeCtx, subscriber, events.TopicAll); err != nil {
				logger.Error("change event consumer error", "err", err)
			}
		}()

		// gRPC
		grpcServer := server.NewGRPCServer(srv)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			stopConsume()
			publisher.Close()
			subscriber.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		// HTTP
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startExport(cfg, docs, logger)

		logger.Info("catalog server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		stopConsume()
		consumeWG.Wait()
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := subscriber.Close(); err != nil {
			logger.Error("error closing subscriber", "err", err)
		}
		if tier != nil {
			if err := tier.Close(); err != nil {
				logger.Error("error closing redis", "err", err)
			}
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// openBus returns the change-event publisher and subscriber.
func openBus(cfg *config.Config, logger *slog.Logger) (events.Publisher, events.Subscriber, error) {
	if cfg.NATSURL == "" {
		logger.Info("CATALOG_NATS_URL not set, change events stay in process")
		bus := events.NewMemoryBus()
		return bus, bus, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, nil, err
	}
	sub, err := events.NewNATSSubscriber(cfg.NATSURL)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, sub, nil
}

// openBlobs returns S3 storage when a bucket is configured and in-memory
// storage otherwise.
func openBlobs(cfg *config.Config, logger *slog.Logger) (blob.Store, error) {
	if cfg.S3Bucket == "" {
		logger.Info("CATALOG_S3_BUCKET not set, uploads are kept in memory")
		return blob.NewMemoryStore(server.MediaPath), nil
	}
	s, err := blob.NewS3Store(context.Background(), blob.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("S3 uploads enabled", "bucket", cfg.S3Bucket, "public_url", s.PublicURL())
	return s, nil
}

// exportDestinations builds the configured export targets. S3 failures are
// logged and skipped so a bad bucket does not block the file destination.
func exportDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []export.Destination {
	var dests []export.Destination
	if cfg.S3Bucket != "" {
		d, err := export.NewS3Destination(ctx, cfg.S3Bucket, cfg.ExportS3Key, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 export destination", "err", err)
		} else {
			dests = append(dests, d)
		}
	}
	if cfg.ExportFile != "" {
		dests = append(dests, &export.FileDestination{Path: cfg.ExportFile})
	}
	return dests
}

func startExport(cfg *config.Config, docs *docstore.Client, logger *slog.Logger) *export.Scheduler {
	if !cfg.ExportEnabled() {
		return nil
	}
	dests := exportDestinations(context.Background(), cfg, logger)
	if len(dests) == 0 {
		return nil
	}
	s := export.NewScheduler(docs, dests, cfg.ExportInterval, logger)
	s.Start()
	logger.Info("export scheduler started", "interval", cfg.ExportInterval, "destinations", len(dests))
	return s
}

func init() {
	serveCmd.Flags().Bool("seed", false, "seed starter content when the store is empty")
}
