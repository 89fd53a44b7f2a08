// Package telegram connects the service to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/splitbot/internal/service"
)

// Ensure Client implements service.Messenger
var _ service.Messenger = (*Client)(nil)

// botAPI is the part of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

// Client implements service.Messenger over the Bot API. The Bot API
// library takes no context; calls check ctx before going out.
type Client struct {
	bot botAPI
}

// NewClient logs in with the bot token.
func NewClient(token string) (*Client, *tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bot: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return &Client{bot: bot}, bot, nil
}

func newClient(bot botAPI) *Client {
	return &Client{bot: bot}
}

// SendMessage posts msg as HTML.
func (c *Client) SendMessage(ctx context.Context, chatID int64, msg service.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	out := tgbotapi.NewMessage(chatID, msg.Text)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	if len(msg.Keyboard) > 0 {
		out.ReplyMarkup = keyboard(msg.Keyboard)
	}

	sent, err := c.bot.Send(out)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the message text and keyboard.
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, msg service.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, msg.Text, keyboard(msg.Keyboard))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true

	if _, err := c.bot.Send(edit); err != nil {
		// Pressing a button that changes nothing visible re-renders the
		// same text, which Telegram refuses.
		if strings.Contains(err.Error(), "message is not modified") {
			slog.Debug("Message not modified", "chat_id", chatID, "message_id", messageID)
			return nil
		}
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press; a non-empty text is shown
// to the member as a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// ChatAdministrators returns the ids of the chat's administrators.
func (c *Client) ChatAdministrators(ctx context.Context, chatID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	members, err := c.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat administrators: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

// RegisterCommands publishes the bot's command list.
func (c *Client) RegisterCommands() error {
	_, err := c.bot.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "help", Description: "How to use the bot"},
	))
	if err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}
	return nil
}

// SetWebhook points Telegram at the given URL.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("failed to build webhook: %w", err)
	}
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook switches the bot back to long polling.
func (c *Client) DeleteWebhook() error {
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

func keyboard(rows [][]service.Button) tgbotapi.InlineKeyboardMarkup {
	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		markup = append(markup, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(markup...)
}
