package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/orchestrator"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}
	h.handleText(ctx, msg)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "reset":
		h.handleReset(ctx, msg)
	default:
		h.bot.Send(msg.Chat.ID, "Невідома команда. Використайте /help для довідки.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	text := `Вітаю, я ваш віртуальний турагент! 🌴

Надішліть запит у довільній формі, і я підберу тури.

Приклад: <i>Тур до Єгипту на 2 дорослих з 10.12, бюджет 1500 дол</i>`
	h.bot.Send(msg.Chat.ID, text)
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	helpText := `<b>Доступні команди:</b>

/start - Привітання та приклад запиту
/help - Показати цю довідку
/reset - Почати новий пошук з чистого листа

<b>Як користуватись:</b>
Напишіть, куди і коли хочете полетіти, звідки виліт, скільки дорослих та дітей, який бюджет. Можна частинами: я запам'ятовую сказане і допитаю, чого бракує.

<b>Приклади:</b>
• Туреччина на 2 дорослих з Києва з 02.11
• до Єгипту, бюджет 1500 дол
• 25 квітня, двоє дорослих і дитина 7 років`

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleReset(ctx context.Context, msg *tgbotapi.Message) {
	if err := h.bot.orchestrator.Reset(ctx, msg.Chat.ID); err != nil {
		h.bot.logger.Error("session reset failed", zap.Error(err))
		h.bot.Send(msg.Chat.ID, "Сталася помилка. Спробуйте пізніше.")
		return
	}
	h.bot.Send(msg.Chat.ID, "Ок 🙂 Почнемо новий пошук. Куди летимо? 🌍")
}

func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) {
	if !h.bot.rateLimiter.Allow(msg.From.ID) {
		resetTime := h.bot.rateLimiter.ResetTime(msg.From.ID)
		h.bot.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Time("reset_at", resetTime),
		)
		h.bot.RecordRateLimitHit(msg.From.ID)
		h.bot.Send(msg.Chat.ID, "Забагато запитів. Зачекайте хвилину, будь ласка.")
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	reply, err := h.bot.orchestrator.Turn(ctx, msg.Chat.ID, msg.Text)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			// поиск завершился после истечения сессии, результат отброшен
			h.bot.logger.Info("discarding result for expired session",
				zap.Int64("chat_id", msg.Chat.ID))
			return
		}
		h.bot.logger.Error("turn failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.sendReply(msg.Chat.ID, reply)
}

func (h *Handler) sendReply(chatID int64, reply *orchestrator.Reply) {
	if reply == nil {
		return
	}

	if reply.Warning != "" {
		h.bot.Send(chatID, reply.Warning)
	}

	switch reply.Kind {
	case orchestrator.KindOffers:
		h.sendOffers(chatID, reply)
	default:
		for _, m := range SplitMessage(reply.Text, 4096) { // лимит телеграма
			if err := h.bot.Send(chatID, m); err != nil {
				h.bot.logger.Error("failed to send message", zap.Error(err))
			}
		}
	}
}

func (h *Handler) sendOffers(chatID int64, reply *orchestrator.Reply) {
	if reply.State != nil && len(reply.Offers) > 0 {
		h.bot.Send(chatID, FormatSummary(reply.State))
	}

	if len(reply.Offers) == 0 {
		h.bot.Send(chatID, reply.Text)
		return
	}

	cards := FormatOffers(reply.Offers, reply.CurrencyID)
	for _, card := range cards {
		if card.ImageURL != "" {
			h.bot.SendPhoto(chatID, card.ImageURL, card.Caption)
			continue
		}
		h.bot.Send(chatID, card.Caption)
	}

	if reply.HasMore {
		page := reply.Page
		if page == 0 {
			page = 1
		}
		h.bot.Send(chatID, formatMoreNotice(len(cards), page))
	}
}

func formatMoreNotice(shown, page int) string {
	return fmt.Sprintf("Показано %d результатів (стор. %d). Напишіть «ще», щоб побачити наступні варіанти.", shown, page)
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return "Порожнє повідомлення. Напишіть ваш запит."
	case errors.Is(err, domain.ErrMessageTooLong):
		return "Запит занадто довгий. Максимум 1000 символів."
	case errors.Is(err, domain.ErrExtractionFailed):
		return "Не можу розпізнати запит. Спробуйте переформулювати."
	case errors.Is(err, domain.ErrUnknownCurrency):
		return "Не впізнаю таку валюту. Підтримую грн, долари та євро."
	default:
		return "Сталася помилка. Спробуйте пізніше."
	}
}
