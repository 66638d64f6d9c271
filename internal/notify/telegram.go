package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"solana-wallet-monitor/internal/domain"
)

// DefaultTelegramBaseURL is the Bot API root.
const DefaultTelegramBaseURL = "https://api.telegram.org"

// TelegramSink posts signals through the Bot API sendMessage method.
type TelegramSink struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	now     func() time.Time
}

var _ Sink = (*TelegramSink)(nil)

// NewTelegramSink creates a TelegramSink. An empty baseURL uses DefaultTelegramBaseURL.
func NewTelegramSink(baseURL, token, chatID string, timeout time.Duration) *TelegramSink {
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	return &TelegramSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Name implements Sink.
func (t *TelegramSink) Name() string { return "telegram" }

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Deliver implements Sink.
func (t *TelegramSink) Deliver(ctx context.Context, s *domain.CohortSignal) (Receipt, error) {
	id, err := t.send(ctx, FormatMessage(s, t.now().Unix()), 0)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Sink: t.Name(), MessageID: strconv.FormatInt(id, 10)}, nil
}

// Reply posts text as a reply to an earlier message. messageID is the
// MessageID of a telegram Receipt.
func (t *TelegramSink) Reply(ctx context.Context, messageID, text string) error {
	replyTo, err := strconv.ParseInt(messageID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", messageID, err)
	}
	_, err = t.send(ctx, text, replyTo)
	return err
}

func (t *TelegramSink) send(ctx context.Context, text string, replyTo int64) (int64, error) {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyToMessageID:      replyTo,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the URL carries the bot token
		return 0, fmt.Errorf("send message: %s", strings.ReplaceAll(err.Error(), t.token, "***"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var decoded sendMessageResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return 0, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, err)
	}
	if !decoded.OK {
		return 0, fmt.Errorf("telegram: status %d: %s", resp.StatusCode, decoded.Description)
	}
	return decoded.Result.MessageID, nil
}
