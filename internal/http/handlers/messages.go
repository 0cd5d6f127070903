package handlers

import (
	"encoding/json"
	"net/http"

	"imagebot/internal/bot"
	"imagebot/internal/middleware"
)

type messageReply struct {
	Handled bool   `json:"handled"`
	Reply   string `json:"reply,omitempty"`
}

// Messages receives a raw chat message forwarded by the host platform and
// runs it through the command handlers. Non-commands come back unhandled so
// the host can route them elsewhere.
func (a *App) Messages(w http.ResponseWriter, r *http.Request) {
	var msg bot.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if msg.Locale == "" {
		msg.Locale = middleware.LocaleFromContext(r.Context())
	}

	reply, handled := a.Bot.HandleMessage(r.Context(), msg)
	a.json(w, http.StatusOK, messageReply{Handled: handled, Reply: reply})
}
