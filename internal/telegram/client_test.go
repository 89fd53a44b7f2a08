package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/splitbot/internal/service"
)

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	admins   []tgbotapi.ChatMember
	sendErr  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 100 + len(f.sent)}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	return f.admins, nil
}

var msg = service.Message{
	Text: "<b>Football</b>: 90",
	Keyboard: [][]service.Button{
		{{Text: "Split", Data: "split"}, {Text: "Split & pay", Data: "pay"}},
		{{Text: "Done", Data: "done"}},
	},
}

func TestClient_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("html with keyboard", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot)

		id, err := c.SendMessage(ctx, -1, msg)
		assert.NoError(t, err)
		assert.Equal(t, 101, id)

		out := bot.sent[0].(tgbotapi.MessageConfig)
		assert.Equal(t, int64(-1), out.ChatID)
		assert.Equal(t, tgbotapi.ModeHTML, out.ParseMode)
		markup := out.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		assert.Equal(t, 2, len(markup.InlineKeyboard))
		assert.Equal(t, "pay", *markup.InlineKeyboard[0][1].CallbackData)
	})

	t.Run("plain notice has no keyboard", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot)

		_, err := c.SendMessage(ctx, -1, service.Message{Text: "Who will pay?"})
		assert.NoError(t, err)
		out := bot.sent[0].(tgbotapi.MessageConfig)
		assert.Equal(t, nil, out.ReplyMarkup)
	})

	t.Run("canceled context", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := c.SendMessage(cctx, -1, msg)
		assert.IsError(t, err, context.Canceled)
		assert.Equal(t, 0, len(bot.sent))
	})
}

func TestClient_EditMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("edit", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot)

		assert.NoError(t, c.EditMessage(ctx, -1, 7, msg))
		out := bot.sent[0].(tgbotapi.EditMessageTextConfig)
		assert.Equal(t, 7, out.MessageID)
		assert.Equal(t, tgbotapi.ModeHTML, out.ParseMode)
		assert.Equal(t, "done", *out.ReplyMarkup.InlineKeyboard[1][0].CallbackData)
	})

	t.Run("not modified is not an error", func(t *testing.T) {
		bot := &fakeBot{sendErr: errors.New("Bad Request: message is not modified")}
		c := newClient(bot)
		assert.NoError(t, c.EditMessage(ctx, -1, 7, msg))
	})

	t.Run("other errors surface", func(t *testing.T) {
		bot := &fakeBot{sendErr: errors.New("Forbidden")}
		c := newClient(bot)
		assert.Error(t, c.EditMessage(ctx, -1, 7, msg))
	})
}

func TestClient_Callbacks(t *testing.T) {
	ctx := context.Background()
	bot := &fakeBot{admins: []tgbotapi.ChatMember{
		{User: &tgbotapi.User{ID: 1}},
		{User: nil},
		{User: &tgbotapi.User{ID: 4}},
	}}
	c := newClient(bot)

	assert.NoError(t, c.AnswerCallback(ctx, "cb1", "Nobody pays"))
	answer := bot.requests[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, "cb1", answer.CallbackQueryID)
	assert.Equal(t, "Nobody pays", answer.Text)

	ids, err := c.ChatAdministrators(ctx, -1)
	assert.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids)
}
