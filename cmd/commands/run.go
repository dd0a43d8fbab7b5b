package commands

// The run command wires the whole service: configuration, wallet store,
// upstream clients, the fetch strategy, the Telegram bot, the command
// handler and the tracking loop, with signal-driven graceful shutdown.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0idum/nft-transfers-tracker/internal/chain"
	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/bitquery"
	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/etherscan"
	"github.com/v0idum/nft-transfers-tracker/internal/infra/config"
	logging "github.com/v0idum/nft-transfers-tracker/internal/infra/log"
	"github.com/v0idum/nft-transfers-tracker/internal/storage/sqlite"
	"github.com/v0idum/nft-transfers-tracker/internal/telegram"
	"github.com/v0idum/nft-transfers-tracker/internal/tracker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracker (Telegram commands + wallet tracking loop)",
	RunE:  runTracker,
}

func runTracker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := sqlite.NewStore(cfg.App.DBPath)
	if err != nil {
		logging.LogError("Failed to open wallet store", zap.Error(err))
		return fmt.Errorf("failed to open wallet store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.LogWarn("Failed to close wallet store", zap.Error(err))
		}
	}()

	explorer := etherscan.NewClient(cfg.Etherscan.BaseURL, cfg.Etherscan.APIKey, cfg.Etherscan.RequestTimeout)
	indexer := bitquery.NewClient(cfg.Bitquery.URL, cfg.Bitquery.APIKey, cfg.Bitquery.RequestTimeout)

	var chainClient chain.Client
	switch cfg.Tracker.Strategy {
	case config.StrategyReconcile:
		chainClient = chain.NewReconcileStrategy(indexer, explorer)
	default:
		chainClient = chain.NewScanStrategy(explorer, indexer)
	}
	logging.LogInfo("Fetch strategy selected", zap.String("strategy", cfg.Tracker.Strategy))

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	logging.LogSuccess("Bot authorized", zap.String("username", bot.Self.UserName))

	service := tracker.New(store, chainClient, telegram.NewSink(bot), tracker.Config{
		CycleInterval: time.Duration(cfg.Tracker.CycleInterval) * time.Second,
		WalletDelay:   time.Duration(cfg.Tracker.WalletDelay) * time.Second,
		DeliveryDelay: time.Duration(cfg.Tracker.DeliveryDelayMs) * time.Millisecond,
		ErrorDelay:    time.Duration(cfg.Tracker.ErrorDelay) * time.Second,
	})
	handler := telegram.NewHandler(bot, service, store)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		service.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		handler.Run(ctx)
	}()

	logging.LogSuccess("Tracker is running", zap.String("db", cfg.App.DBPath))
	<-ctx.Done()

	logging.LogInfo("Shutting down...")
	wg.Wait()
	logging.LogSuccess("Shutdown complete")
	return nil
}
