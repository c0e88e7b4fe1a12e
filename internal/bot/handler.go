// Package bot implements the Telegram conversation on top of the forecast
// service.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"RebarForecast/internal/forecast"
	"RebarForecast/internal/model"
	"RebarForecast/internal/notifier"
)

// ForecastService is the part of forecast.Service the bot uses.
type ForecastService interface {
	Settings() forecast.Settings
	Forecast(source string, start time.Time, periods int) (model.ForecastSeries, error)
	AutoForecast(source string) (model.ForecastSeries, error)
	Recommend(source string, query time.Time) (*forecast.Recommendation, error)
}

// Subscriptions manages broadcast subscribers.
type Subscriptions interface {
	Subscribe(chatID int64) (bool, error)
	Unsubscribe(chatID int64) (bool, error)
}

// Handler routes chat messages.
type Handler struct {
	service    ForecastService
	sessions   SessionStore
	subs       Subscriptions
	autoButton string
	keyboard   notifier.Keyboard
	log        zerolog.Logger
}

// NewHandler creates a Handler. subs may be nil to disable subscriptions.
func NewHandler(service ForecastService, sessions SessionStore, subs Subscriptions, log zerolog.Logger) *Handler {
	autoPeriods := service.Settings().AutoPeriods
	return &Handler{
		service:    service,
		sessions:   sessions,
		subs:       subs,
		autoButton: notifier.AutoButton(autoPeriods),
		keyboard:   notifier.MainKeyboard(autoPeriods),
		log:        log.With().Str("component", "bot").Logger(),
	}
}

// Handle processes one message and returns the replies.
func (h *Handler) Handle(ctx context.Context, msg notifier.Message) []notifier.Reply {
	command, arg := splitCommand(msg.Text)
	if command == h.autoButton {
		command = "/auto"
	}

	switch command {
	case "/start", "/help":
		h.endSession(ctx, msg.ChatID)
		return reply(notifier.FormatWelcome(h.service.Settings().AutoPeriods), h.keyboard)
	case "/auto":
		h.endSession(ctx, msg.ChatID)
		return h.autoForecast()
	case "/forecast", notifier.ButtonForecast:
		return h.beginForecast(ctx, msg.ChatID)
	case "/price":
		h.endSession(ctx, msg.ChatID)
		return h.price(arg)
	case "/subscribe":
		return h.subscribe(msg.ChatID, true)
	case "/unsubscribe":
		return h.subscribe(msg.ChatID, false)
	case "/cancel":
		h.endSession(ctx, msg.ChatID)
		return reply("Диалог прогноза отменён.", h.keyboard)
	}

	session, err := h.sessions.Get(ctx, msg.ChatID)
	if errors.Is(err, ErrNoSession) {
		return reply("Не понимаю команду. Нажмите /start, чтобы увидеть доступные действия.", h.keyboard)
	}
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("load session")
		return reply("⚠️ Ошибка сервиса. Попробуйте позже.", nil)
	}

	switch session.State {
	case StateWaitingDate:
		return h.acceptDate(ctx, session, msg.Text)
	case StateWaitingPeriods:
		return h.acceptPeriods(ctx, session, msg.Text)
	default:
		h.endSession(ctx, msg.ChatID)
		return reply("Нажмите /start, чтобы начать заново.", h.keyboard)
	}
}

func (h *Handler) autoForecast() []notifier.Reply {
	series, err := h.service.AutoForecast(forecast.SourceTelegram)
	if err != nil {
		return h.failure(err)
	}
	return reply(notifier.FormatAutoForecast(series), nil)
}

func (h *Handler) beginForecast(ctx context.Context, chatID int64) []notifier.Reply {
	if err := h.sessions.Put(ctx, &Session{ChatID: chatID, State: StateWaitingDate}); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("create session")
		return reply("⚠️ Ошибка сервиса. Попробуйте позже.", nil)
	}
	return reply("📅 Введите начальную дату для прогноза в формате ДД.ММ.ГГГГ (например, 01.01.2023):", nil)
}

func (h *Handler) acceptDate(ctx context.Context, s *Session, text string) []notifier.Reply {
	date, err := time.Parse(notifier.DateLayout, strings.TrimSpace(text))
	if err != nil {
		return reply("❌ Неверный формат даты. Пожалуйста, введите дату в формате ДД.ММ.ГГГГ:", nil)
	}
	s.State = StateWaitingPeriods
	s.StartDate = date
	if err := h.sessions.Put(ctx, s); err != nil {
		h.log.Error().Err(err).Int64("chat_id", s.ChatID).Msg("update session")
		return reply("⚠️ Ошибка сервиса. Попробуйте позже.", nil)
	}
	return reply(fmt.Sprintf("⏳ Введите количество недель для прогноза (от 1 до %d):", h.service.Settings().MaxPeriods), nil)
}

func (h *Handler) acceptPeriods(ctx context.Context, s *Session, text string) []notifier.Reply {
	maxPeriods := h.service.Settings().MaxPeriods
	periods, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || periods < 1 || periods > maxPeriods {
		return reply(fmt.Sprintf("❌ Неверное количество недель. Введите число от 1 до %d:", maxPeriods), nil)
	}

	h.endSession(ctx, s.ChatID)
	series, err := h.service.Forecast(forecast.SourceTelegram, s.StartDate, periods)
	if err != nil {
		return h.failure(err)
	}
	return reply(notifier.FormatForecast(s.StartDate, series), h.keyboard)
}

func (h *Handler) price(arg string) []notifier.Reply {
	query, err := time.Parse(notifier.DateLayout, arg)
	if err != nil {
		return reply("Использование: /price ДД.ММ.ГГГГ", nil)
	}
	rec, err := h.service.Recommend(forecast.SourceTelegram, query)
	if err != nil {
		return h.failure(err)
	}
	return reply(notifier.FormatRecommendation(rec.Query, rec.Point, rec.Advice), nil)
}

func (h *Handler) subscribe(chatID int64, on bool) []notifier.Reply {
	if h.subs == nil {
		return reply("Рассылка отключена.", nil)
	}
	if on {
		added, err := h.subs.Subscribe(chatID)
		if err != nil {
			h.log.Error().Err(err).Int64("chat_id", chatID).Msg("subscribe")
			return reply("⚠️ Не удалось оформить подписку. Попробуйте позже.", nil)
		}
		if !added {
			return reply("Вы уже подписаны на еженедельный прогноз.", nil)
		}
		return reply("✅ Вы подписались на еженедельный прогноз.", nil)
	}
	removed, err := h.subs.Unsubscribe(chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("unsubscribe")
		return reply("⚠️ Не удалось отменить подписку. Попробуйте позже.", nil)
	}
	if !removed {
		return reply("Вы не подписаны на рассылку.", nil)
	}
	return reply("Подписка отменена.", nil)
}

func (h *Handler) endSession(ctx context.Context, chatID int64) {
	if err := h.sessions.Delete(ctx, chatID); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("delete session")
	}
}

// failure maps a forecast error to a user-facing message.
func (h *Handler) failure(err error) []notifier.Reply {
	kind := forecast.ErrorKind(err)
	h.log.Warn().Err(err).Str("kind", kind).Msg("forecast failed")
	return reply(ErrorText(err), nil)
}

// ErrorText returns the chat message for a forecast error.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return "❌ Некорректный запрос. Проверьте дату и количество недель."
	case errors.Is(err, model.ErrModelUnavailable):
		return "⚠️ Модель прогнозирования недоступна. Попробуйте позже."
	case errors.Is(err, model.ErrEmptySeries):
		return "⚠️ Нет прогнозных данных для этой даты."
	case errors.Is(err, model.ErrArtifactIO):
		return "⚠️ Ошибка доступа к данным модели. Попробуйте позже."
	default:
		return "⚠️ Ошибка при расчете прогноза."
	}
}

func splitCommand(text string) (command, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text, ""
	}
	command, arg, _ = strings.Cut(text, " ")
	// Drop the bot mention from group commands like /start@rebar_bot.
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command), strings.TrimSpace(arg)
}

func reply(text string, kb notifier.Keyboard) []notifier.Reply {
	return []notifier.Reply{{Text: text, Keyboard: kb}}
}
