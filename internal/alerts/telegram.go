package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bn-strike-bot/internal/config"

	"go.uber.org/zap"
)

const telegramBaseURL = "https://api.telegram.org"

type Telegram struct {
	enabled    bool
	token      string
	apeInToken string
	chatID     string
	baseURL    string
	client     *http.Client
	log        *zap.Logger
}

func NewTelegram(cfg config.TelegramConfig, log *zap.Logger) *Telegram {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramBaseURL
	}
	return newTelegram(cfg, log, baseURL, &http.Client{Timeout: 10 * time.Second})
}

func newTelegram(cfg config.TelegramConfig, log *zap.Logger, baseURL string, client *http.Client) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{
		enabled:    cfg.Enabled,
		token:      strings.TrimSpace(cfg.Token),
		apeInToken: strings.TrimSpace(cfg.ApeInToken),
		chatID:     strings.TrimSpace(cfg.ChatID),
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
		log:        log,
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Send posts msg as HTML. Ape-in alerts go through the dedicated bot when
// one is configured.
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	if !t.enabled {
		return nil
	}
	token := t.token
	if msg.Kind == KindApeIn && t.apeInToken != "" {
		token = t.apeInToken
	}
	if token == "" || t.chatID == "" {
		return errors.New("telegram token and chat_id are required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return errors.New("telegram message is empty")
	}
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       msg.HTML,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram send failed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			desc := strings.TrimSpace(result.Description)
			if desc == "" {
				desc = "unknown telegram error"
			}
			return fmt.Errorf("telegram send failed: %s", desc)
		}
	}
	return nil
}
