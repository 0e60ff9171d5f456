package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/api"
	"github.com/chainchat/chainchat/internal/certificate"
	"github.com/chainchat/chainchat/internal/config"
	"github.com/chainchat/chainchat/internal/host"
	"github.com/chainchat/chainchat/internal/ledger"
	"github.com/chainchat/chainchat/internal/logging"
	"github.com/chainchat/chainchat/internal/metrics"
	"github.com/chainchat/chainchat/internal/program"
	"github.com/chainchat/chainchat/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chainchat node",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	manager, err := config.NewManager(zap.NewNop(), cfgFile)
	if err != nil {
		return err
	}
	defer manager.Close()
	cfg := manager.Get()

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	l := ledger.New(logger)
	prog := program.New(logger, l, certificate.NewLocalIssuer(logger))
	node := host.New(logger, l, prog, host.WithMetrics(m))

	st, err := store.Open(logger, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cp, err := st.LoadCheckpoint(ctx)
	if err != nil {
		return err
	}
	if cp != nil {
		if err := node.RestoreCheckpoint(cp); err != nil {
			return err
		}
		logger.Info("restored checkpoint",
			zap.Uint64("sequence", cp.Sequence),
			zap.Int("records", len(cp.Records)),
		)
	}

	if cfg.Store.JournalEvents {
		feed, cancelFeed := node.Subscribe(256)
		defer cancelFeed()
		go func() {
			for applied := range feed {
				if err := st.AppendEvents(ctx, applied); err != nil {
					logger.Warn("failed to journal events", zap.Error(err))
				}
			}
		}()
	}

	go checkpointLoop(ctx, logger, node, st, cfg.Store.CheckpointInterval)

	var server *api.Server
	if cfg.API.Enabled {
		server, err = api.NewServer(logger, cfg.API, node, st, registry)
		if err != nil {
			return err
		}
		if err := server.Start(ctx); err != nil {
			return err
		}
	}

	if err := manager.Watch(); err != nil {
		logger.Warn("config watch unavailable", zap.Error(err))
	}

	logger.Info("chainchat node running",
		zap.Uint64("sequence", node.Sequence()),
		zap.String("store", cfg.Store.Path),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	cancel()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("API shutdown error", zap.Error(err))
		}
	}

	// Final checkpoint so a restart resumes at the current sequence.
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	if err := st.SaveCheckpoint(saveCtx, node.Checkpoint()); err != nil {
		logger.Error("final checkpoint failed", zap.Error(err))
	}
	logger.Info("chainchat stopped")
	return nil
}

func checkpointLoop(ctx context.Context, logger *zap.Logger, node *host.Host, st *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var lastSequence uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cp := node.Checkpoint()
			if cp.Sequence == lastSequence {
				continue
			}
			if err := st.SaveCheckpoint(ctx, cp); err != nil {
				logger.Warn("periodic checkpoint failed", zap.Error(err))
				continue
			}
			lastSequence = cp.Sequence
		}
	}
}
