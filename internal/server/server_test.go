package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/calculator"
	"github.com/mmynk/splitbot/internal/metrics"
	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/service"
)

type fakeUpdates struct {
	got []service.Update
	err error
}

func (f *fakeUpdates) HandleUpdate(_ context.Context, u service.Update) (*service.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got = append(f.got, u)
	return &service.Outcome{Kind: service.OutcomeIgnored}, nil
}

type fakeBalances struct {
	err error
}

func (f *fakeBalances) GetGroupBalances(_ context.Context, group string) (*service.GroupBalances, error) {
	if f.err != nil {
		return nil, f.err
	}
	if group != "club" {
		return nil, service.ErrGroupNotFound
	}
	return &service.GroupBalances{
		Group: "club",
		Balances: []models.MemberBalance{
			{Member: models.Member{ID: 1, FirstName: "Alice", Username: "alice"}, Balance: decimal.RequireFromString("60")},
			{Member: models.Member{ID: 2, FirstName: "Bob"}, Balance: decimal.RequireFromString("-30")},
			{Member: models.Member{ID: 3, FirstName: "<Carol>"}, Balance: decimal.RequireFromString("-30")},
		},
		Transfers: []calculator.Transfer{
			{From: 2, To: 1, Amount: decimal.RequireFromString("30")},
			{From: 3, To: 1, Amount: decimal.RequireFromString("30")},
		},
	}, nil
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const helpUpdate = `{"update_id": 7, "message": {"message_id": 3, "date": 0,
	"chat": {"id": -100, "type": "supergroup", "username": "club"},
	"from": {"id": 1, "is_bot": false, "first_name": "Alice"},
	"text": "/help"}}`

func TestWebhook(t *testing.T) {
	t.Run("handled", func(t *testing.T) {
		updates := &fakeUpdates{}
		h := New(updates, &fakeBalances{}, nil).Handler()

		rec := do(h, http.MethodPost, "/webhook", helpUpdate)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, len(updates.got))
		assert.Equal(t, 7, updates.got[0].ID)
		assert.Equal(t, "/help", updates.got[0].Text)
		assert.Equal(t, int64(-100), updates.got[0].Chat.ID)
	})

	t.Run("unsupported update is acknowledged", func(t *testing.T) {
		updates := &fakeUpdates{}
		h := New(updates, &fakeBalances{}, nil).Handler()

		rec := do(h, http.MethodPost, "/webhook", `{"update_id": 8}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, len(updates.got))
	})

	t.Run("failure asks for redelivery", func(t *testing.T) {
		h := New(&fakeUpdates{err: errors.New("db down")}, &fakeBalances{}, nil).Handler()
		rec := do(h, http.MethodPost, "/webhook", helpUpdate)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("bad json", func(t *testing.T) {
		h := New(&fakeUpdates{}, &fakeBalances{}, nil).Handler()
		rec := do(h, http.MethodPost, "/webhook", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get is not allowed", func(t *testing.T) {
		h := New(&fakeUpdates{}, &fakeBalances{}, nil).Handler()
		rec := do(h, http.MethodGet, "/webhook", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestAPIBalances(t *testing.T) {
	h := New(&fakeUpdates{}, &fakeBalances{}, nil).Handler()

	t.Run("ok", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/balances?group=@club", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

		var resp BalancesResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "club", resp.Group)
		assert.Equal(t, 3, len(resp.Members))
		assert.Equal(t, MemberResponse{ID: 1, Name: "Alice", Username: "alice", Balance: "60"}, resp.Members[0])
		assert.Equal(t, TransferResponse{From: 2, FromName: "Bob", To: 1, ToName: "Alice", Amount: "30"}, resp.Transfers[0])
	})

	t.Run("missing group", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/balances", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown group", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/balances?group=nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		h := New(&fakeUpdates{}, &fakeBalances{err: errors.New("boom")}, nil).Handler()
		rec := do(h, http.MethodGet, "/api/balances?group=club", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestBalancesPage(t *testing.T) {
	h := New(&fakeUpdates{}, &fakeBalances{}, nil).Handler()

	t.Run("renders balances and transfers", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/?group=club", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>@club</h1>")
		assert.Contains(t, body, `class="amount pos">60<`)
		assert.Contains(t, body, `class="amount neg">-30<`)
		assert.Contains(t, body, "Bob → Alice")
		assert.Contains(t, body, "&lt;Carol&gt;")
	})

	t.Run("missing group", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "balances link")
	})

	t.Run("unknown group", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/?group=nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("other paths", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/index.html", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOperationalRoutes(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		h := New(&fakeUpdates{}, &fakeBalances{}, nil).Handler()
		rec := do(h, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		m := metrics.New()
		m.Update("message", "ignored", 0)
		h := New(&fakeUpdates{}, &fakeBalances{}, m).Handler()
		rec := do(h, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "splitbot_updates_total")
	})

	t.Run("no metrics configured", func(t *testing.T) {
		h := New(&fakeUpdates{}, &fakeBalances{}, nil).Handler()
		rec := do(h, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		h := New(&fakeUpdates{}, &fakeBalances{}, nil).Handler()
		rec := do(h, http.MethodOptions, "/api/balances", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
