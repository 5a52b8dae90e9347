package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chat-relay/cmd/api/clients/completionclient"
	"chat-relay/models"
	"chat-relay/repositories"
)

type fakeSessions struct {
	mu        sync.Mutex
	seq       int64
	byID      map[int64]models.ChatSession
	createErr error
	findErr   error
	clock     func() time.Time
}

func newFakeSessions() *fakeSessions {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int64
	return &fakeSessions{
		byID: map[int64]models.ChatSession{},
		clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func (f *fakeSessions) Create(_ context.Context, ownerCode string) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	s := models.ChatSession{ID: f.seq, CreatedAt: f.clock(), OwnerCode: ownerCode}
	f.byID[s.ID] = s
	return &s, nil
}

func (f *fakeSessions) FindByID(_ context.Context, id int64) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessions) FindByIDAndOwner(ctx context.Context, id int64, ownerCode string) (*models.ChatSession, error) {
	s, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerCode == "" || s.OwnerCode != ownerCode {
		return nil, repositories.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeMessages struct {
	mu        sync.Mutex
	items     []models.ChatMessage
	appendErr error
	clock     func() time.Time
}

func newFakeMessages() *fakeMessages {
	base := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	var tick int64
	return &fakeMessages{clock: func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}}
}

func (f *fakeMessages) Append(_ context.Context, sessionID int64, role, content string) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	m := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: f.clock(),
	}
	f.items = append(f.items, m)
	return &m, nil
}

func (f *fakeMessages) ListBySession(_ context.Context, sessionID int64) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ChatMessage{}
	for _, m := range f.items {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeMessages) byRole(sessionID int64, role string) int {
	msgs, _ := f.ListBySession(context.Background(), sessionID)
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

func (f *fakeMessages) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeLogs struct {
	mu        sync.Mutex
	entries   []models.CompletionLog
	insertErr error
}

func (f *fakeLogs) Insert(_ context.Context, log models.CompletionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries = append(f.entries, log)
	return nil
}

type fakeProvider struct {
	reply  string
	err    error
	onCall func()
	got    [][]completionclient.Message
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Complete(_ context.Context, messages []completionclient.Message) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	f.got = append(f.got, messages)
	return f.reply, f.err
}
