package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"RebarForecast/internal/metrics"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Keyboard is a reply keyboard shown under the message input. Each inner
// slice is one row of buttons.
type Keyboard [][]string

// Reply is a message to send back to a chat.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Options configures a TelegramClient.
type Options struct {
	BaseURL       string
	Proxy         string
	PollTimeout   time.Duration
	RatePerSecond float64
	// RetryDelay is the base pause after a failed poll.
	RetryDelay time.Duration
}

// TelegramClient talks to the Telegram Bot API.
type TelegramClient struct {
	botToken    string
	baseURL     string
	client      *http.Client
	pollTimeout time.Duration
	retryDelay  time.Duration
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	metrics     *metrics.Recorder
	log         zerolog.Logger
}

// NewTelegramClient creates a client with optional proxy support.
func NewTelegramClient(botToken string, opts Options, mr *metrics.Recorder, log zerolog.Logger) *TelegramClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 20
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}

	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	st := gobreaker.Settings{Name: "telegram"}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 5 }
	st.Timeout = 30 * time.Second
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
	}

	return &TelegramClient{
		botToken:    botToken,
		baseURL:     opts.BaseURL,
		pollTimeout: opts.PollTimeout,
		retryDelay:  opts.RetryDelay,
		client: &http.Client{
			Timeout:   opts.PollTimeout + 10*time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(st),
		metrics: mr,
		log:     log.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.botToken, method)
}

type replyKeyboardMarkup struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

type sendMessageRequest struct {
	ChatID      int64                `json:"chat_id"`
	Text        string               `json:"text"`
	ParseMode   string               `json:"parse_mode,omitempty"`
	ReplyMarkup *replyKeyboardMarkup `json:"reply_markup,omitempty"`
}

// Send sends a message to chatID.
func (t *TelegramClient) Send(ctx context.Context, chatID int64, reply Reply) error {
	payload := sendMessageRequest{ChatID: chatID, Text: reply.Text, ParseMode: "HTML"}
	if len(reply.Keyboard) > 0 {
		markup := &replyKeyboardMarkup{ResizeKeyboard: true}
		for _, row := range reply.Keyboard {
			buttons := make([]keyboardButton, len(row))
			for i, label := range row {
				buttons[i] = keyboardButton{Text: label}
			}
			markup.Keyboard = append(markup.Keyboard, buttons)
		}
		payload.ReplyMarkup = markup
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	_, err = t.breaker.Execute(func() (interface{}, error) {
		return nil, t.post(ctx, "sendMessage", body)
	})
	t.metrics.RecordMessage(err == nil)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (t *TelegramClient) post(ctx context.Context, method string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramClient) SendWithRetry(ctx context.Context, chatID int64, reply Reply, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(ctx, chatID, reply); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			t.log.Warn().Err(err).Int64("chat_id", chatID).Int("attempt", i+1).Dur("backoff", backoff).Msg("send failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
