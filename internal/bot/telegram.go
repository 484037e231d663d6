package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// pollTimeout is the Telegram long-poll window in seconds.
const pollTimeout = 30

// TelegramClient is a minimal Telegram Bot API client: long-polling
// getUpdates plus sendMessage is everything this bot needs.
type TelegramClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewTelegramClient creates a client for the given bot token.
func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		// Must outlast the long-poll window.
		http: &http.Client{Timeout: (pollTimeout + 10) * time.Second},
	}
}

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message.
type Message struct {
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []Update `json:"result"`
}

// GetUpdates long-polls for updates newer than offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(pollTimeout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API error: %s", resp.Status)
	}

	var body updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if !body.OK {
		return nil, fmt.Errorf("telegram API returned ok=false")
	}
	return body.Result, nil
}

// SendMessage posts a plain-text reply to a chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/sendMessage", nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}
	return nil
}
