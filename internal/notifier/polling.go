package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is an incoming text message.
type Message struct {
	ChatID   int64
	Username string
	Text     string
}

// MessageHandler handles one incoming message and returns the replies to send.
type MessageHandler func(ctx context.Context, msg Message) []Reply

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From *struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

type updatesResponse struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description"`
	Result      []telegramUpdate `json:"result"`
}

// maxRetryFactor caps the poll backoff at maxRetryFactor * RetryDelay.
const maxRetryFactor = 3

// StartPolling begins long-polling for messages. Blocks until ctx is cancelled.
func (t *TelegramClient) StartPolling(ctx context.Context, handler MessageHandler) {
	offset := 0
	failures := 0

	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				t.log.Info().Msg("polling stopped")
				return
			}
			failures++
			delay := t.retryDelay * time.Duration(min(failures, maxRetryFactor))
			t.log.Warn().Err(err).Dur("retry_in", delay).Msg("polling request failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		failures = 0

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
				continue
			}
			msg := Message{
				ChatID: update.Message.Chat.ID,
				Text:   strings.TrimSpace(update.Message.Text),
			}
			if update.Message.From != nil {
				msg.Username = update.Message.From.Username
			}
			t.log.Debug().Int64("chat_id", msg.ChatID).Str("text", msg.Text).Msg("received message")

			for _, reply := range handler(ctx, msg) {
				if err := t.Send(ctx, msg.ChatID, reply); err != nil {
					t.log.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("send reply")
				}
			}
		}
	}
}

func (t *TelegramClient) getUpdates(ctx context.Context, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=%d", t.methodURL("getUpdates"), offset, int(t.pollTimeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create polling request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}

	var result updatesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram API error: %s", result.Description)
	}
	return result.Result, nil
}
