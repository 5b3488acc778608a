package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// Update represents a Telegram update. Reaction updates only arrive when
// getUpdates asks for them via allowed_updates.
type Update struct {
	UpdateID        int              `json:"update_id"`
	Message         *Message         `json:"message"`
	MessageReaction *MessageReaction `json:"message_reaction"`
}

// Message represents a Telegram message
type Message struct {
	MessageID int    `json:"message_id"`
	From      User   `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// MessageReaction represents a change of a user's reaction on a message
type MessageReaction struct {
	Chat        Chat           `json:"chat"`
	MessageID   int            `json:"message_id"`
	User        User           `json:"user"`
	NewReaction []ReactionType `json:"new_reaction"`
}

// ReactionType is a single reaction; only emoji reactions are used here
type ReactionType struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

// User represents a Telegram user
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat represents a Telegram chat
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Client is a wrapper for the Telegram Bot API
type Client struct {
	Token      string
	APIBase    string
	HTTPClient *http.Client
}

// NewClient creates a new Telegram client
func NewClient(token string) *Client {
	return &Client{
		Token:      token,
		APIBase:    "https://api.telegram.org",
		HTTPClient: &http.Client{},
	}
}

var allowedUpdates = url.QueryEscape(`["message","message_reaction"]`)

// GetUpdates fetches new updates from Telegram, including reaction changes.
func (c *Client) GetUpdates(offset int, timeout int) ([]Update, error) {
	u := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d&allowed_updates=%s",
		c.APIBase, c.Token, offset, timeout, allowedUpdates)

	resp, err := c.HTTPClient.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API returned status: %s", resp.Status)
	}

	var result struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if !result.OK {
		return nil, fmt.Errorf("telegram API reported error in response")
	}

	return result.Result, nil
}

// SendMessage sends a message to a specific chat and returns its message id.
func (c *Client) SendMessage(chatID int64, text string) (int, error) {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	return c.postForMessageID("sendMessage", payload)
}

// SendPhoto uploads a local image with a caption and returns the message id.
func (c *Client) SendPhoto(chatID int64, caption, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open photo %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return 0, err
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return 0, err
	}
	if err := writer.WriteField("parse_mode", "Markdown"); err != nil {
		return 0, err
	}
	part, err := writer.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendPhoto", c.APIBase, c.Token)
	resp, err := c.HTTPClient.Post(apiURL, writer.FormDataContentType(), &buf)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return decodeMessageID(resp)
}

// SetMessageReaction sets the bot's reaction on a message. A bot account
// carries a single reaction per message, so this replaces any earlier one.
func (c *Client) SetMessageReaction(chatID int64, messageID int, emoji string) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"reaction":   []ReactionType{{Type: "emoji", Emoji: emoji}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	apiURL := fmt.Sprintf("%s/bot%s/setMessageReaction", c.APIBase, c.Token)
	resp, err := c.HTTPClient.Post(apiURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status: %v", resp.Status)
	}
	return nil
}

func (c *Client) postForMessageID(method string, payload map[string]interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	apiURL := fmt.Sprintf("%s/bot%s/%s", c.APIBase, c.Token, method)
	resp, err := c.HTTPClient.Post(apiURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return decodeMessageID(resp)
}

func decodeMessageID(resp *http.Response) (int, error) {
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("telegram API returned status: %v", resp.Status)
	}

	var result struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int `json:"message_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	if !result.OK {
		return 0, fmt.Errorf("telegram API reported error in response")
	}
	return result.Result.MessageID, nil
}
