package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RebarForecast/internal/forecast"
	"RebarForecast/internal/model"
	"RebarForecast/internal/notifier"
)

type flatPredictor float64

func (f flatPredictor) Predict(vectors []model.FeatureVector) ([]float64, error) {
	out := make([]float64, len(vectors))
	for i := range out {
		out[i] = float64(f)
	}
	return out, nil
}

type fakeSubs struct {
	ids map[int64]bool
	err error
}

func (f *fakeSubs) Subscribe(id int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.ids[id] {
		return false, nil
	}
	f.ids[id] = true
	return true, nil
}

func (f *fakeSubs) Unsubscribe(id int64) (bool, error) {
	if !f.ids[id] {
		return false, nil
	}
	delete(f.ids, id)
	return true, nil
}

func newTestHandler(p forecast.Predictor) (*Handler, *MemorySessionStore, *fakeSubs) {
	last := time.Date(2022, 12, 26, 0, 0, 0, 0, time.UTC)
	history := &model.History{
		Train:    []model.PricePoint{{Date: last, Price: decimal.NewFromInt(40000)}},
		LastDate: last,
	}
	svc := forecast.NewService(p, history, forecast.Settings{AutoPeriods: 6, MaxPeriods: 12}, nil, nil, zerolog.Nop())
	store := NewMemorySessionStore(time.Hour)
	subs := &fakeSubs{ids: map[int64]bool{}}
	return NewHandler(svc, store, subs, zerolog.Nop()), store, subs
}

func send(h *Handler, chatID int64, text string) notifier.Reply {
	replies := h.Handle(context.Background(), notifier.Message{ChatID: chatID, Text: text})
	if len(replies) == 0 {
		return notifier.Reply{}
	}
	return replies[0]
}

func TestHandle_Start(t *testing.T) {
	h, _, _ := newTestHandler(flatPredictor(41000))
	r := send(h, 1, "/start")
	assert.Contains(t, r.Text, "Бот прогнозирования цен на арматуру")
	assert.Equal(t, notifier.MainKeyboard(6), r.Keyboard)

	r = send(h, 1, "/start@rebar_bot")
	assert.Equal(t, notifier.MainKeyboard(6), r.Keyboard)
}

func TestHandle_AutoForecast(t *testing.T) {
	h, _, _ := newTestHandler(flatPredictor(41000))
	r := send(h, 1, notifier.AutoButton(6))
	assert.Contains(t, r.Text, "Автоматический прогноз на 6 недель")
	assert.Contains(t, r.Text, "📅 02.01.2023: 41 000 руб.")
	assert.Contains(t, r.Text, "📅 06.02.2023: 41 000 руб.")
}

func TestHandle_AutoButtonFollowsSettings(t *testing.T) {
	last := time.Date(2022, 12, 26, 0, 0, 0, 0, time.UTC)
	history := &model.History{
		Train:    []model.PricePoint{{Date: last, Price: decimal.NewFromInt(40000)}},
		LastDate: last,
	}
	svc := forecast.NewService(flatPredictor(41000), history, forecast.Settings{AutoPeriods: 4, MaxPeriods: 12}, nil, nil, zerolog.Nop())
	h := NewHandler(svc, NewMemorySessionStore(time.Hour), nil, zerolog.Nop())

	r := send(h, 1, "/start")
	require.Len(t, r.Keyboard, 1)
	assert.Equal(t, "Автопрогноз на 4 недель", r.Keyboard[0][1])

	r = send(h, 1, "Автопрогноз на 4 недель")
	assert.Contains(t, r.Text, "Автоматический прогноз на 4 недель")
	assert.Contains(t, r.Text, "📅 23.01.2023: 41 000 руб.")

	r = send(h, 1, "Автопрогноз на 6 недель")
	assert.Contains(t, r.Text, "Не понимаю команду")
}

func TestHandle_ForecastDialogue(t *testing.T) {
	h, store, _ := newTestHandler(flatPredictor(41000))
	ctx := context.Background()

	r := send(h, 7, notifier.ButtonForecast)
	assert.Contains(t, r.Text, "ДД.ММ.ГГГГ")
	s, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingDate, s.State)

	r = send(h, 7, "2023-01-01")
	assert.Contains(t, r.Text, "Неверный формат даты")
	s, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingDate, s.State)

	r = send(h, 7, "01.01.2023")
	assert.Contains(t, r.Text, "от 1 до 12")
	s, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingPeriods, s.State)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), s.StartDate)

	for _, bad := range []string{"0", "13", "six"} {
		r = send(h, 7, bad)
		assert.Contains(t, r.Text, "Неверное количество недель", bad)
	}

	r = send(h, 7, "3")
	assert.Contains(t, r.Text, "Прогноз на 3 недель с 01.01.2023")
	assert.Contains(t, r.Text, "📅 02.01.2023")
	assert.Contains(t, r.Text, "📅 16.01.2023")

	_, err = store.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestHandle_SessionsAreIndependent(t *testing.T) {
	h, store, _ := newTestHandler(flatPredictor(41000))
	send(h, 1, "/forecast")
	send(h, 2, "/forecast")
	send(h, 1, "01.01.2023")

	s1, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	s2, err := store.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingPeriods, s1.State)
	assert.Equal(t, StateWaitingDate, s2.State)
}

func TestHandle_CommandResetsDialogue(t *testing.T) {
	h, store, _ := newTestHandler(flatPredictor(41000))
	send(h, 1, "/forecast")
	send(h, 1, "/cancel")
	_, err := store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoSession)

	r := send(h, 1, "hello")
	assert.Contains(t, r.Text, "/start")
}

func TestHandle_Price(t *testing.T) {
	h, _, _ := newTestHandler(flatPredictor(42000))
	r := send(h, 1, "/price 05.01.2023")
	assert.Contains(t, r.Text, "Прогноз на 05.01.2023")
	assert.Contains(t, r.Text, "📅 02.01.2023: 42 000 руб.")
	assert.Contains(t, r.Text, "закупать сейчас")

	r = send(h, 1, "/price tomorrow")
	assert.Contains(t, r.Text, "Использование")
}

func TestHandle_ModelUnavailable(t *testing.T) {
	h, _, _ := newTestHandler(nil)
	r := send(h, 1, "/auto")
	assert.Equal(t, ErrorText(model.ErrModelUnavailable), r.Text)

	send(h, 1, "/forecast")
	send(h, 1, "01.01.2023")
	r = send(h, 1, "2")
	assert.Contains(t, r.Text, "Модель прогнозирования недоступна")
}

func TestHandle_Subscribe(t *testing.T) {
	h, _, subs := newTestHandler(flatPredictor(41000))
	assert.Contains(t, send(h, 5, "/subscribe").Text, "подписались")
	assert.Contains(t, send(h, 5, "/subscribe").Text, "уже подписаны")
	assert.True(t, subs.ids[5])
	assert.Contains(t, send(h, 5, "/unsubscribe").Text, "отменена")
	assert.Contains(t, send(h, 5, "/unsubscribe").Text, "не подписаны")

	subs.err = errors.New("disk full")
	assert.Contains(t, send(h, 5, "/subscribe").Text, "Не удалось")
}

func TestErrorText(t *testing.T) {
	kinds := []error{model.ErrInvalidInput, model.ErrModelUnavailable, model.ErrEmptySeries, model.ErrArtifactIO, errors.New("x")}
	seen := map[string]bool{}
	for _, err := range kinds {
		text := ErrorText(fmt.Errorf("wrapped: %w", err))
		assert.NotEmpty(t, text)
		seen[text] = true
	}
	assert.Len(t, seen, len(kinds))
}
