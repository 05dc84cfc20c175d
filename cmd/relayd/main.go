// Package main provides the entry point for the oracle relay daemon.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"

	"oracle-consensus/internal/admin"
	"oracle-consensus/internal/ai"
	"oracle-consensus/internal/config"
	dbpkg "oracle-consensus/internal/db"
	"oracle-consensus/internal/ledger"
	"oracle-consensus/internal/logger"
	"oracle-consensus/internal/relay"
	"oracle-consensus/internal/storage"
	"oracle-consensus/internal/tui"
)

func ledgerParams(cfg config.Config) ledger.Params {
	p := ledger.DefaultParams()
	p.MinStake = uint256.NewInt(cfg.MinStakeUnits)
	p.MinFee = uint256.NewInt(cfg.MinFeeUnits)
	p.MaxQuestionLen = cfg.MaxQuestionLen
	p.LockPeriod = cfg.LockPeriod
	p.VotingWindow = cfg.VotingWindow
	p.QuorumPct = cfg.QuorumPct
	p.ApprovalPct = cfg.ApprovalPct
	p.SlashPct = cfg.SlashPct
	p.RewardPct = cfg.RewardPct
	return p
}

// buildSource selects where events come from and what the relay may write
// back. With the cometbft source there is no tx submitter yet, so the relay
// runs mirror-only and the chain side records answers and finalizes.
func buildSource(cfg config.Config, led *ledger.Ledger) (relay.EventSource, relay.Submitter, error) {
	if cfg.Source == config.SourceCometBFT {
		src, err := relay.NewCometSource(cfg.RPCURL, cfg.WSPath)
		return src, nil, err
	}
	return relay.LedgerSource{Ledger: led}, led, nil
}

func buildAIClient(ctx context.Context, cfg config.Config) (ai.Client, error) {
	if cfg.AIMode == config.AIModeGenAI {
		return ai.NewGenAIClient(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
	}
	return ai.NewLocalClient(), nil
}

func buildStore(cfg config.Config) (storage.Store, error) {
	if cfg.StorageMode == config.StorageModeIPFS {
		return storage.NewIPFSStore(cfg.IPFSURL, nil), nil
	}
	return storage.NewLocalStore(cfg.StorageDir)
}

func main() {
	// Try to load .env from CWD if present; otherwise use environment as-is
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}

	cfg := config.Load()

	// If debug logs are enabled, write them to file to avoid interfering with TUI
	var logWriter io.Writer = os.Stderr
	if cfg.Debug {
		logFile, err := os.OpenFile("relayd.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			logWriter = logFile
			fmt.Fprintf(os.Stderr, "Debug logs written to relayd.log\n")
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to open log file, logs will go to stderr (may interfere with TUI): %v\n", err)
		}
	}

	log := logger.NewWithWriter(cfg.Debug, logWriter)

	fmt.Printf("Oracle relay starting...\n")
	fmt.Printf("Config loaded: %s\n", cfg.DebugString())

	gormDB, err := dbpkg.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if gormDB == nil {
		log.Fatalf("DATABASE_URL not provided; the relay needs its read model store")
	}
	log.Printf("DB connected")

	if err := dbpkg.AutoMigrate(gormDB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Printf("Migrations applied")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	led := ledger.New(ledgerParams(cfg))

	source, submitter, err := buildSource(cfg, led)
	if err != nil {
		log.Fatalf("failed to init event source: %v", err)
	}
	var aiClient ai.Client
	if submitter != nil {
		aiClient, err = buildAIClient(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init AI client: %v", err)
		}
	} else {
		log.Printf("mirror-only: %s source has no submitter, AI fulfilment and finalize sweep disabled", cfg.Source)
	}
	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("failed to init answer store: %v", err)
	}

	// TUI updates flow over this channel unless debug mode keeps the
	// terminal for logs
	var tuiUpdateCh chan any
	if !cfg.Debug {
		tuiUpdateCh = make(chan any, relay.TUIChannelBufferSize)
		go func() {
			if err := tui.Run(tuiUpdateCh); err != nil {
				log.Printf("TUI error: %v", err)
			}
			// TUI exited, cancel context to trigger shutdown
			cancel()
		}()
	}

	rel, err := relay.New(cfg, gormDB, source, submitter, aiClient, store, tuiUpdateCh, log)
	if err != nil {
		log.Printf("failed to init relay: %v", err)
		return
	}

	if cfg.AdminAddr != "" {
		adminSrv := admin.NewServer(cfg.AdminAddr, rel, log)
		go func() {
			if err := adminSrv.Run(ctx); err != nil {
				log.Printf("admin server stopped: %v", err)
			}
		}()
	}

	go func() {
		if err := rel.Run(ctx); err != nil {
			log.Printf("relay stopped: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	if tuiUpdateCh != nil {
		// Close TUI update channel to stop sending updates
		close(tuiUpdateCh)
		// Give TUI a moment to process the close and quit
		time.Sleep(relay.TUICloseDelay)
	}

	// Ensure logs flushed in some environments
	_ = os.Stderr.Sync()
	_ = os.Stdout.Sync()
}
