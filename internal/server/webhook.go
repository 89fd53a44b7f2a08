package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/splitbot/internal/telegram"
)

// maxUpdateSize bounds the webhook request body.
const maxUpdateSize = 1 << 20

// handleWebhook receives one Telegram update. A non-2xx answer makes
// Telegram deliver the update again, so only uncommitted failures get one.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var upd tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&upd); err != nil {
		slog.Warn("Webhook decode failed", "error", err)
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	if _, err := telegram.Dispatch(r.Context(), s.updates, upd); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
