package service_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/presenter"
	"github.com/mmynk/splitbot/internal/service"
	"github.com/mmynk/splitbot/internal/storage/sqlstore"
)

var (
	group = models.Group{ID: -1001, Username: "club"}
	alice = models.Member{ID: 1, FirstName: "Alice"}
	bob   = models.Member{ID: 2, FirstName: "Bob"}
	carol = models.Member{ID: 3, FirstName: "Carol"}
	dave  = models.Member{ID: 4, FirstName: "Dave"}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type sentMessage struct {
	chatID int64
	msg    service.Message
}

type editedMessage struct {
	chatID    int64
	messageID int
	msg       service.Message
}

// fakeMessenger records chat output.
type fakeMessenger struct {
	mu         sync.Mutex
	nextID     int
	sent       []sentMessage
	edits      []editedMessage
	answers    map[string]string
	admins     map[int64][]int64
	adminCalls int
	sendErr    error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		answers: make(map[string]string),
		admins:  make(map[int64][]int64),
	}
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, msg service.Message) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, msg: msg})
	return f.nextID, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, chatID int64, messageID int, msg service.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{chatID: chatID, messageID: messageID, msg: msg})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[callbackID] = text
	return nil
}

func (f *fakeMessenger) ChatAdministrators(_ context.Context, chatID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminCalls++
	return f.admins[chatID], nil
}

func (f *fakeMessenger) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeMessenger) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].msg.Text
}

// memoryDeduper is an in-memory service.Deduper.
type memoryDeduper struct {
	mu   sync.Mutex
	seen map[int]bool
}

func (d *memoryDeduper) Claim(updateID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[updateID] {
		return false, nil
	}
	d.seen[updateID] = true
	return true, nil
}

func (d *memoryDeduper) Release(updateID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, updateID)
	return nil
}

type harness struct {
	t         *testing.T
	svc       *service.Service
	store     *sqlstore.SQLStore
	messenger *fakeMessenger

	mu       sync.Mutex
	updateID int
}

// setupTestService creates a service over a temp SQLite database.
func setupTestService(t *testing.T, cfg service.Config, opts ...service.Option) *harness {
	t.Helper()

	// Create temp database
	tmpFile, err := os.CreateTemp("", "test-*.db")
	assert.NoError(t, err)
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := sqlstore.NewSQLite(tmpFile.Name())
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	messenger := newFakeMessenger()
	return &harness{
		t:         t,
		svc:       service.New(store, messenger, presenter.New(), cfg, opts...),
		store:     store,
		messenger: messenger,
	}
}

func (h *harness) nextUpdateID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updateID++
	return h.updateID
}

func (h *harness) post(from models.Member, text string) *service.Outcome {
	h.t.Helper()
	out, err := h.svc.HandleUpdate(context.Background(), service.Update{
		ID:   h.nextUpdateID(),
		Kind: service.UpdateMessage,
		Chat: group,
		From: from,
		Text: text,
	})
	assert.NoError(h.t, err)
	return out
}

// create posts an invite and returns the message id of the new expense.
func (h *harness) create(from models.Member, text string) int {
	h.t.Helper()
	out := h.post(from, text)
	assert.Equal(h.t, service.OutcomeCreated, out.Kind)
	return out.Projection.MessageID
}

func (h *harness) pressUpdate(from models.Member, messageID int, data string) service.Update {
	id := h.nextUpdateID()
	return service.Update{
		ID:         id,
		Kind:       service.UpdateCallback,
		Chat:       group,
		From:       from,
		MessageID:  messageID,
		CallbackID: "cb" + strconv.Itoa(id),
		Data:       data,
	}
}

func (h *harness) press(from models.Member, messageID int, data string) *service.Outcome {
	h.t.Helper()
	out, err := h.svc.HandleUpdate(context.Background(), h.pressUpdate(from, messageID, data))
	assert.NoError(h.t, err)
	return out
}

func (h *harness) balance(m models.Member) decimal.Decimal {
	h.t.Helper()
	b, err := h.store.GetMemberBalance(context.Background(), m.ID, group.ID)
	assert.NoError(h.t, err)
	return b
}

func (h *harness) assertBalance(m models.Member, want string) {
	h.t.Helper()
	got := h.balance(m)
	assert.True(h.t, got.Equal(dec(want)), "balance of %s: got %s, want %s", m.FirstName, got, want)
}

func (h *harness) expense(messageID int) *models.Expense {
	h.t.Helper()
	e, err := h.store.GetExpense(context.Background(), group.ID, messageID)
	assert.NoError(h.t, err)
	return e
}

func TestHandleUpdate_Dedupe(t *testing.T) {
	deduper := &memoryDeduper{seen: make(map[int]bool)}
	h := setupTestService(t, service.Config{}, service.WithDeduper(deduper))
	ctx := context.Background()

	u := service.Update{ID: 42, Kind: service.UpdateMessage, Chat: group, From: alice, Text: "Football 19:00? [90]"}

	out, err := h.svc.HandleUpdate(ctx, u)
	assert.NoError(t, err)
	assert.Equal(t, service.OutcomeCreated, out.Kind)

	out, err = h.svc.HandleUpdate(ctx, u)
	assert.NoError(t, err)
	assert.Equal(t, service.OutcomeDuplicate, out.Kind)
	assert.Equal(t, 1, len(h.messenger.sent))
}

func TestHandleUpdate_ReleasesClaimOnFailure(t *testing.T) {
	deduper := &memoryDeduper{seen: make(map[int]bool)}
	h := setupTestService(t, service.Config{}, service.WithDeduper(deduper))
	assert.NoError(t, h.store.Close())

	u := service.Update{ID: 7, Kind: service.UpdateMessage, Chat: group, From: alice, Text: "Football 19:00? [90]"}
	_, err := h.svc.HandleUpdate(context.Background(), u)
	assert.Error(t, err)

	deduper.mu.Lock()
	defer deduper.mu.Unlock()
	assert.False(t, deduper.seen[7])
}

func TestHandleUpdate_IgnoresUnknownKind(t *testing.T) {
	h := setupTestService(t, service.Config{})
	out, err := h.svc.HandleUpdate(context.Background(), service.Update{Chat: group, From: alice})
	assert.NoError(t, err)
	assert.Equal(t, service.OutcomeIgnored, out.Kind)
}

func TestHandleUpdate_ChatFailureAfterCommitIsLogged(t *testing.T) {
	h := setupTestService(t, service.Config{})
	h.messenger.sendErr = errors.New("telegram down")

	out := h.post(alice, "Football 19:00? [90]")
	assert.Equal(t, service.OutcomeCreated, out.Kind)
	assert.Equal(t, 0, out.Projection.MessageID)
}
