package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/v0idum/nft-transfers-tracker/internal/domain"
	"github.com/v0idum/nft-transfers-tracker/internal/infra/log"
	"github.com/v0idum/nft-transfers-tracker/internal/tracker"
)

// WalletRegistry is the read surface the handler queries directly.
// Registration and removal go through the Service.
type WalletRegistry interface {
	ListByChat(ctx context.Context, chatID int64) ([]domain.Wallet, error)
}

// Handler answers chat commands: /add, /remove, /wallets. It owns
// registration and removal; the tracking loop never writes to the same
// rows it does (the loop touches cursors only).
type Handler struct {
	bot     *tgbotapi.BotAPI
	service *tracker.Service
	store   WalletRegistry
}

func NewHandler(bot *tgbotapi.BotAPI, service *tracker.Service, store WalletRegistry) *Handler {
	return &Handler{bot: bot, service: service, store: store}
}

// Run consumes the long-polling update channel until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)
	log.LogInfo("Command handler started")

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			log.LogInfo("Command handler stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			h.handleCommand(ctx, update.Message)
		}
	}
}

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	args := strings.TrimSpace(message.CommandArguments())
	chatID := message.Chat.ID

	log.LogDebug("Received command",
		zap.String("command", command),
		zap.String("args", args),
		zap.Int64("chat_id", chatID))

	switch command {
	case "add":
		h.handleAdd(ctx, message, args)
	case "remove":
		h.handleRemove(ctx, message, args)
	case "wallets":
		h.handleList(ctx, message)
	case "start", "help":
		h.reply(message, "Commands:\n"+
			"/add {name} {address} — track a wallet\n"+
			"/remove {name} — stop tracking\n"+
			"/wallets — list tracked wallets")
	}
}

func (h *Handler) handleAdd(ctx context.Context, message *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		h.reply(message, "Usage: /add {name} {address}\n\nExample: /add vault 0x1a2b…  (42 character eth address)")
		return
	}

	wallet := domain.Wallet{
		Name:    parts[0],
		Address: parts[1],
		ChatID:  message.Chat.ID,
	}

	if err := h.service.RegisterWallet(ctx, wallet); err != nil {
		h.reply(message, registrationReply(err))
		return
	}
	h.reply(message, "New wallet added!")
}

func (h *Handler) handleRemove(ctx context.Context, message *tgbotapi.Message, args string) {
	name := strings.TrimSpace(args)
	if name == "" {
		h.reply(message, "Usage: /remove {name}")
		return
	}

	if err := h.service.RemoveWallet(ctx, name, message.Chat.ID); err != nil {
		if errors.Is(err, tracker.ErrWalletNotFound) {
			h.reply(message, "Wallet not added yet")
			return
		}
		log.LogError("Failed to remove wallet", zap.Error(err))
		h.reply(message, "Something went wrong, try again later")
		return
	}
	h.reply(message, "Wallet deleted!")
}

func (h *Handler) handleList(ctx context.Context, message *tgbotapi.Message) {
	wallets, err := h.store.ListByChat(ctx, message.Chat.ID)
	if err != nil {
		log.LogError("Failed to list wallets", zap.Error(err))
		h.reply(message, "Something went wrong, try again later")
		return
	}
	if len(wallets) == 0 {
		h.reply(message, "No wallets tracked yet. Add one with /add {name} {address}")
		return
	}

	var b strings.Builder
	b.WriteString("Tracked Wallets:\n\n")
	for _, w := range wallets {
		fmt.Fprintf(&b, "%s:\n%s\n", w.Name, w.Address)
	}
	h.reply(message, b.String())
}

// registrationReply maps a registration failure to the immediate,
// specific retry prompt the user sees.
func registrationReply(err error) string {
	var validationErr *tracker.ValidationError
	if errors.As(err, &validationErr) {
		switch {
		case errors.Is(err, tracker.ErrInvalidAddress):
			return "Invalid wallet address, try again:"
		case errors.Is(err, tracker.ErrDuplicateWallet):
			return "Wallet already added, try again:"
		}
		return validationErr.Error()
	}
	log.LogError("Wallet registration failed", zap.Error(err))
	return "Could not verify the address right now, try again later"
}

func (h *Handler) reply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := h.bot.Send(msg); err != nil {
		log.LogError("Failed to send reply", zap.Error(err))
	}
}
