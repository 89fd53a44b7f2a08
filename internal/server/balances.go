package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/presenter"
	"github.com/mmynk/splitbot/internal/service"
)

// BalancesResponse is the JSON body of GET /api/balances.
type BalancesResponse struct {
	Group     string             `json:"group"`
	Members   []MemberResponse   `json:"members"`
	Transfers []TransferResponse `json:"transfers"`
}

type MemberResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Balance  string `json:"balance"`
}

type TransferResponse struct {
	From     int64  `json:"from"`
	FromName string `json:"fromName"`
	To       int64  `json:"to"`
	ToName   string `json:"toName"`
	Amount   string `json:"amount"`
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	group := strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("group")), "@")
	if group == "" {
		http.Error(w, "group is required", http.StatusBadRequest)
		return
	}

	balances, err := s.balances.GetGroupBalances(r.Context(), group)
	if errors.Is(err, service.ErrGroupNotFound) {
		http.Error(w, "group not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, convertBalances(balances))
}

func (s *Server) handleBalancesPage(w http.ResponseWriter, r *http.Request) {
	group := strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("group")), "@")
	data := pageData{Group: group}
	status := http.StatusOK

	if group == "" {
		data.Error = "Open this page from the balances link in your group."
		status = http.StatusBadRequest
	} else {
		balances, err := s.balances.GetGroupBalances(r.Context(), group)
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			data.Error = "This group has no balances yet."
			status = http.StatusNotFound
		case err != nil:
			data.Error = "Something went wrong, try again later."
			status = http.StatusInternalServerError
		default:
			data.Balances = convertBalances(balances)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := balancesPage.Execute(w, data); err != nil {
		slog.Error("Render balances page failed", "group", group, "error", err)
	}
}

func convertBalances(b *service.GroupBalances) *BalancesResponse {
	names := make(map[int64]string, len(b.Balances))
	resp := &BalancesResponse{
		Group:     b.Group,
		Members:   make([]MemberResponse, 0, len(b.Balances)),
		Transfers: make([]TransferResponse, 0, len(b.Transfers)),
	}
	for _, m := range b.Balances {
		names[m.ID] = m.DisplayName()
		resp.Members = append(resp.Members, MemberResponse{
			ID:       m.ID,
			Name:     m.DisplayName(),
			Username: m.Username,
			Balance:  presenter.Money(m.Balance),
		})
	}
	for _, t := range b.Transfers {
		resp.Transfers = append(resp.Transfers, TransferResponse{
			From:     t.From,
			FromName: names[t.From],
			To:       t.To,
			ToName:   names[t.To],
			Amount:   presenter.Money(t.Amount),
		})
	}
	return resp
}

func writeJSONResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}

type pageData struct {
	Group    string
	Error    string
	Balances *BalancesResponse
}

var balancesPage = template.Must(template.New("balances").Funcs(template.FuncMap{
	"sign": func(s string) string {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return ""
		}
		switch d.Sign() {
		case 1:
			return "pos"
		case -1:
			return "neg"
		}
		return ""
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Group}}@{{.Group}} balances{{else}}Balances{{end}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 32rem; margin: 2rem auto; padding: 0 1rem; }
table { width: 100%; border-collapse: collapse; margin-bottom: 2rem; }
td, th { padding: .4rem; border-bottom: 1px solid #ddd; text-align: left; }
td.amount { text-align: right; font-variant-numeric: tabular-nums; }
.pos { color: #1a7f37; }
.neg { color: #cf222e; }
</style>
</head>
<body>
{{if .Error}}
<p>{{.Error}}</p>
{{else}}
<h1>@{{.Group}}</h1>
<h2>Balances</h2>
<table>
{{range .Balances.Members}}<tr><td>{{.Name}}</td><td class="amount {{sign .Balance}}">{{.Balance}}</td></tr>
{{end}}</table>
{{if .Balances.Transfers}}<h2>Settle up</h2>
<table>
{{range .Balances.Transfers}}<tr><td>{{.FromName}} → {{.ToName}}</td><td class="amount">{{.Amount}}</td></tr>
{{end}}</table>
{{else}}<p>Everyone is settled up.</p>
{{end}}{{end}}
</body>
</html>
`))
