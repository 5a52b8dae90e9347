package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/clients/completionclient"
	"chat-relay/models"
)

type chatFixture struct {
	sessions *fakeSessions
	messages *fakeMessages
	logs     *fakeLogs
	provider *fakeProvider
	svc      *ChatService
}

func newChatFixture(reply string, err error) *chatFixture {
	f := &chatFixture{
		sessions: newFakeSessions(),
		messages: newFakeMessages(),
		logs:     &fakeLogs{},
		provider: &fakeProvider{reply: reply, err: err},
	}
	f.svc = NewChatService(f.sessions, f.messages, f.logs, f.provider)
	return f
}

func requireChatError(t *testing.T, err error) *ChatError {
	t.Helper()
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	return chatErr
}

func TestChatWithoutSessionCreatesSessionAndPersistsBothTurns(t *testing.T) {
	f := newChatFixture("Python is a programming language.", nil)
	f.provider.onCall = func() {
		// 업스트림 호출 전에 user 메시지가 정확히 1개 저장되어 있어야 한다.
		assert.Equal(t, 1, f.messages.byRole(1, models.RoleUser))
		assert.Equal(t, 0, f.messages.byRole(1, models.RoleAssistant))
	}

	res, err := f.svc.Chat(context.Background(), ChatInput{Message: "What is Python?"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.SessionID)
	assert.Equal(t, int64(1), res.State.Current)
	assert.Equal(t, "Python is a programming language.", res.Reply)
	assert.Contains(t, res.Suggestions, "Features of Python")
	assert.Equal(t, 1, f.messages.byRole(1, models.RoleUser))
	assert.Equal(t, 1, f.messages.byRole(1, models.RoleAssistant))

	require.Len(t, f.provider.got, 1)
	assert.Equal(t, []completionclient.Message{{Role: "user", Content: "What is Python?"}}, f.provider.got[0])

	require.Len(t, f.logs.entries, 1)
	assert.True(t, f.logs.entries[0].Success)
	assert.Equal(t, "fake-model", f.logs.entries[0].ModelName)
}

func TestChatReusesLiveSessionAndSendsFullConversation(t *testing.T) {
	f := newChatFixture("second answer", nil)
	session, err := f.sessions.Create(context.Background(), "")
	require.NoError(t, err)
	_, _ = f.messages.Append(context.Background(), session.ID, models.RoleUser, "first question")
	_, _ = f.messages.Append(context.Background(), session.ID, models.RoleAssistant, "first answer")

	res, err := f.svc.Chat(context.Background(), ChatInput{
		Message: "  second question  ",
		State:   clientstate.State{Current: session.ID},
	})

	require.NoError(t, err)
	assert.Equal(t, session.ID, res.SessionID)
	assert.Equal(t, 1, f.sessions.count())
	require.Len(t, f.provider.got, 1)
	assert.Equal(t, []completionclient.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
	}, f.provider.got[0])
}

func TestChatReplacesStaleOrForeignSession(t *testing.T) {
	f := newChatFixture("ok", nil)
	foreign, err := f.sessions.Create(context.Background(), "someone-else")
	require.NoError(t, err)

	res, err := f.svc.Chat(context.Background(), ChatInput{Message: "hi", State: clientstate.State{Current: foreign.ID}, UserCode: "me"})
	require.NoError(t, err)
	assert.NotEqual(t, foreign.ID, res.SessionID)
	assert.Equal(t, res.SessionID, res.State.Current)

	res2, err := f.svc.Chat(context.Background(), ChatInput{Message: "hi", State: clientstate.State{Current: 999}})
	require.NoError(t, err)
	assert.NotEqual(t, int64(999), res2.SessionID)
	assert.Equal(t, res2.SessionID, res2.State.Current)
}

func TestChatEmptyMessageIsValidationErrorWithoutWrites(t *testing.T) {
	f := newChatFixture("unused", nil)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.Chat(context.Background(), ChatInput{Message: msg})

		chatErr := requireChatError(t, err)
		assert.Equal(t, KindValidation, chatErr.Kind)
		assert.Equal(t, CodeMessageEmpty, chatErr.Code)
		assert.Equal(t, http.StatusBadRequest, chatErr.StatusCode())
	}
	assert.Equal(t, 0, f.messages.total())
	assert.Equal(t, 0, f.sessions.count())
	assert.Empty(t, f.provider.got)
}

func TestChatUpstreamFailuresKeepUserMessageOnly(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"invalid json", completionclient.ErrInvalidJSON, CodeUpstreamInvalidJSON},
		{"non 200", &completionclient.HTTPError{StatusCode: http.StatusServiceUnavailable, Body: "down"}, CodeUpstreamStatusError},
		{"missing reply", completionclient.ErrMissingReply, CodeUpstreamMissingReply},
		{"transport", errors.New("dial tcp: connection refused"), CodeUpstreamUnreachable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newChatFixture("", tc.err)

			res, err := f.svc.Chat(context.Background(), ChatInput{Message: "hello"})

			chatErr := requireChatError(t, err)
			assert.Equal(t, KindUpstream, chatErr.Kind)
			assert.Equal(t, tc.wantCode, chatErr.Code)
			assert.Equal(t, http.StatusInternalServerError, chatErr.StatusCode())
			assert.ErrorIs(t, chatErr, tc.err)
			// 세션 id 는 다음 요청을 위해 상태에 남는다.
			assert.Equal(t, int64(1), res.State.Current)
			assert.Equal(t, 1, f.messages.byRole(1, models.RoleUser))
			assert.Equal(t, 0, f.messages.byRole(1, models.RoleAssistant))

			require.Len(t, f.logs.entries, 1)
			assert.False(t, f.logs.entries[0].Success)
			require.NotNil(t, f.logs.entries[0].ErrorCode)
			assert.Equal(t, tc.wantCode, *f.logs.entries[0].ErrorCode)
		})
	}
}

func TestChatStorageFailureIsUnexpected(t *testing.T) {
	f := newChatFixture("reply", nil)
	f.messages.appendErr = errors.New("mongo: write concern error")

	_, err := f.svc.Chat(context.Background(), ChatInput{Message: "hello"})

	chatErr := requireChatError(t, err)
	assert.Equal(t, KindUnexpected, chatErr.Kind)
	assert.Equal(t, CodeInternal, chatErr.Code)
	assert.Empty(t, f.provider.got)
}

func TestChatSessionLookupFailureIsUnexpected(t *testing.T) {
	f := newChatFixture("reply", nil)
	f.sessions.findErr = errors.New("mongo: server selection timeout")

	_, err := f.svc.Chat(context.Background(), ChatInput{Message: "hello", State: clientstate.State{Current: 3}})

	chatErr := requireChatError(t, err)
	assert.Equal(t, KindUnexpected, chatErr.Kind)
	assert.Equal(t, 0, f.messages.total())
}

func TestChatLanguageAddsTransientSystemTurn(t *testing.T) {
	f := newChatFixture("Python은 언어입니다.", nil)

	_, err := f.svc.Chat(context.Background(), ChatInput{Message: "What is Python?", Language: "Korean"})

	require.NoError(t, err)
	require.Len(t, f.provider.got, 1)
	assert.Equal(t, completionclient.Message{Role: "system", Content: "Respond in Korean."}, f.provider.got[0][0])
	// system 턴은 저장하지 않는다.
	assert.Equal(t, 2, f.messages.total())
}

func TestChatErrorNeverLeaksCauseInCode(t *testing.T) {
	e := newChatError(KindUnexpected, CodeInternal, errors.New("secret dsn mongodb://root:pw@host"))
	assert.Equal(t, CodeInternal, e.Code)
	assert.Equal(t, "unexpected", e.Kind.String())
	assert.Equal(t, http.StatusNotFound, newChatError(KindNotFound, CodeSessionNotFound, nil).StatusCode())
}

func TestChatSucceedsWhenCompletionLogInsertFails(t *testing.T) {
	f := newChatFixture("hi", nil)
	f.logs.insertErr = errors.New("boom")

	res, err := f.svc.Chat(context.Background(), ChatInput{Message: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "hi", res.Reply)
	assert.Equal(t, 1, f.messages.byRole(res.SessionID, models.RoleUser))
	assert.Equal(t, 1, f.messages.byRole(res.SessionID, models.RoleAssistant))
	assert.Empty(t, f.logs.entries)
}

func TestChatSuccessReturnsUntypedNilError(t *testing.T) {
	f := newChatFixture("hi", nil)

	var err error
	_, err = f.svc.Chat(context.Background(), ChatInput{Message: "hello"})

	assert.True(t, err == nil)
}

func TestAsChatErrorWrapsUnclassifiedErrors(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", newChatError(KindValidation, CodeMessageEmpty, nil))
	assert.Equal(t, CodeMessageEmpty, AsChatError(wrapped).Code)

	plain := AsChatError(errors.New("boom"))
	assert.Equal(t, KindUnexpected, plain.Kind)
	assert.Equal(t, CodeInternal, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.StatusCode())
}
