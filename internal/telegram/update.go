package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/service"
)

// Normalize converts a Bot API update into a service.Update. It reports
// false for updates the bot does not handle (edits, joins, channel posts).
func Normalize(u tgbotapi.Update) (service.Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.Message == nil || cq.Message.Chat == nil || cq.From == nil {
			return service.Update{}, false
		}
		return service.Update{
			ID:         u.UpdateID,
			Kind:       service.UpdateCallback,
			Chat:       group(cq.Message.Chat),
			From:       member(cq.From),
			MessageID:  cq.Message.MessageID,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}, true

	case u.Message != nil:
		m := u.Message
		if m.Chat == nil || m.From == nil || m.From.IsBot {
			return service.Update{}, false
		}
		return service.Update{
			ID:   u.UpdateID,
			Kind: service.UpdateMessage,
			Chat: group(m.Chat),
			From: member(m.From),
			Text: m.Text,
		}, true
	}
	return service.Update{}, false
}

func group(c *tgbotapi.Chat) models.Group {
	return models.Group{ID: c.ID, Username: c.UserName}
}

func member(u *tgbotapi.User) models.Member {
	return models.Member{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
