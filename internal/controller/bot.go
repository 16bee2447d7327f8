package controller

import (
	"context"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/controller/handlers"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	cmdHandlers *handlers.Handlers,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	h := c.handlers

	// Общие команды
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.HandleHelp)

	// Команды администраторов
	admin := []struct {
		pattern string
		handler bot.HandlerFunc
	}{
		{"/settle", h.HandleSettle},
		{"/rate", h.HandleRate},
		{"/balance", h.HandleBalance},
		{"/correct", h.HandleCorrect},
		{"/leave", h.HandleLeave},
		{"/payout", h.HandlePayout},
		{"/pending", h.HandlePending},
		{"/confirm", h.HandleConfirm},
		{"/refresh", h.HandleRefresh},
	}
	for _, cmd := range admin {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, cmd.pattern, bot.MatchTypePrefix, cmd.handler, h.RequireAdmin)
	}

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "settle", Description: "✅ Закрыть занятие"},
		{Command: "rate", Description: "📈 Ставка терапевта"},
		{Command: "balance", Description: "📊 Баланс терапевта"},
		{Command: "payout", Description: "💰 Заявка на выплату"},
		{Command: "pending", Description: "⏳ Открытая заявка"},
		{Command: "confirm", Description: "🤝 Подтвердить выплату"},
		{Command: "refresh", Description: "🔄 Пересчитать заявку"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
