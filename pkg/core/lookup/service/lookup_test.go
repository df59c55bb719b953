package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "quick-swgoh/pkg/common/errors"
	historymodel "quick-swgoh/pkg/core/history/model"
	"quick-swgoh/pkg/core/lookup/backend"
	"quick-swgoh/pkg/core/lookup/model"
	"quick-swgoh/pkg/core/lookup/output"
	"quick-swgoh/pkg/core/session"
)

type reply struct {
	resp  backend.Response
	err   error
	delay <-chan struct{}
}

type fakeAPI struct {
	mu      sync.Mutex
	sent    []backend.Request
	replies map[string]reply
}

func (f *fakeAPI) Send(ctx context.Context, r backend.Request) (backend.Response, error) {
	f.mu.Lock()
	f.sent = append(f.sent, r)
	rep := f.replies[r.Path]
	if q, ok := r.Body.(model.CharacterQuery); ok {
		if byID, found := f.replies[r.Path+"#"+q.CharID]; found {
			rep = byID
		}
	}
	f.mu.Unlock()
	if rep.delay != nil {
		<-rep.delay
	}
	return rep.resp, rep.err
}

func (f *fakeAPI) Ping(context.Context) error { return nil }

type memHistory struct {
	mu      sync.Mutex
	records []historymodel.LookupRecord
}

func (m *memHistory) Record(_ context.Context, rec historymodel.LookupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memHistory) Recent(_ context.Context, client string, _ int) ([]historymodel.LookupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []historymodel.LookupRecord
	for _, rec := range m.records {
		if rec.ClientID == client {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memHistory) Ping(context.Context) error { return nil }

func ok(body string) reply {
	return reply{resp: backend.Response{Status: 200, Body: []byte(body)}}
}

func newBridge(api *fakeAPI) (*Bridge, *memHistory) {
	h := &memHistory{}
	return NewBridge(api, output.NewStore(16), h, session.NewVerifier("mysecret", "HS256")), h
}

const (
	alice = "alice"
	bob   = "bob"
)

func TestLookupCharacter(t *testing.T) {
	api := &fakeAPI{replies: map[string]reply{PathCharacters: ok(`{"name":"Rex"}`)}}
	b, h := newBridge(api)

	res := b.LookupCharacter(context.Background(), alice, model.CharacterQuery{CharID: "CT7567"}, "req-1")

	require.True(t, res.OK())
	assert.JSONEq(t, `{"name":"Rex"}`, string(res.Payload))
	assert.Equal(t, "{\n  \"name\": \"Rex\"\n}", b.Output(alice))

	want := []backend.Request{{
		Method:    "POST",
		Path:      "/characters",
		Body:      model.CharacterQuery{CharID: "CT7567"},
		RequestID: "req-1",
	}}
	if diff := cmp.Diff(want, api.sent); diff != "" {
		t.Fatalf("sent requests mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, h.records, 1)
	assert.Equal(t, "character", h.records[0].Kind)
	assert.Equal(t, "CT7567", h.records[0].Query)
	assert.True(t, h.records[0].OK)
	assert.Equal(t, alice, h.records[0].ClientID)
}

func TestLookupAccount_ForwardsBearer(t *testing.T) {
	api := &fakeAPI{replies: map[string]reply{PathAccount: ok(`{"allyCode":"123-456-789","level":85}`)}}
	b, _ := newBridge(api)

	res := b.LookupAccount(context.Background(), alice, model.AccountQuery{AllyCode: "123-456-789"}, "tok", "")

	require.True(t, res.OK())
	assert.Equal(t, "{\n  \"allyCode\": \"123-456-789\",\n  \"level\": 85\n}", b.Output(alice))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "tok", api.sent[0].Bearer)
	assert.Equal(t, model.AccountQuery{AllyCode: "123-456-789"}, api.sent[0].Body)
	assert.NotEmpty(t, res.RequestID, "request id generated when missing")
}

func TestLookup_EmptyValueForwarded(t *testing.T) {
	api := &fakeAPI{replies: map[string]reply{PathCharacters: ok(`{}`)}}
	b, _ := newBridge(api)

	b.LookupCharacter(context.Background(), alice, model.CharacterQuery{CharID: ""}, "")
	require.Len(t, api.sent, 1)
	assert.Equal(t, model.CharacterQuery{CharID: ""}, api.sent[0].Body)
}

func TestLookup_FailuresKeepOutput(t *testing.T) {
	tests := []struct {
		name string
		rep  reply
		is   error
	}{
		{"network", reply{err: fmt.Errorf("%w: dial", apperrors.ErrBackendUnavailable)}, apperrors.ErrBackendUnavailable},
		{"status", reply{resp: backend.Response{Status: 500, Body: []byte(`{"e":1}`)}, err: apperrors.NewBackendStatus(500, `{"e":1}`)}, apperrors.ErrBackendStatus},
		{"malformed", ok("<html>oops</html>"), apperrors.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{replies: map[string]reply{PathCharacters: ok(`{"before":true}`)}}
			b, h := newBridge(api)
			require.True(t, b.LookupCharacter(context.Background(), alice, model.CharacterQuery{CharID: "a"}, "").OK())
			before := b.Output(alice)

			api.replies[PathCharacters] = tt.rep
			res := b.LookupCharacter(context.Background(), alice, model.CharacterQuery{CharID: "b"}, "")

			assert.False(t, res.OK())
			assert.True(t, errors.Is(res.Err, tt.is))
			assert.Nil(t, res.Payload)
			assert.Equal(t, before, b.Output(alice))
			require.Len(t, h.records, 2)
			assert.False(t, h.records[1].OK)
			assert.NotEmpty(t, h.records[1].Error)
		})
	}
}

func TestLookup_StaleResponseDoesNotOverwrite(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{replies: map[string]reply{
		PathCharacters + "#slow": {resp: backend.Response{Status: 200, Body: []byte(`{"who":"slow"}`)}, delay: release},
		PathCharacters + "#fast": ok(`{"who":"fast"}`),
	}}
	b, _ := newBridge(api)

	done := make(chan model.Result)
	go func() {
		done <- b.LookupCharacter(context.Background(), alice, model.CharacterQuery{CharID: "slow"}, "")
	}()

	// 等慢请求先拿到 token
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.sent) == 1
	}, time.Second, time.Millisecond)

	fast := b.LookupCharacter(context.Background(), alice, model.CharacterQuery{CharID: "fast"}, "")
	require.True(t, fast.OK())

	close(release)
	slow := <-done
	require.True(t, slow.OK(), "stale result is still a success for its caller")

	assert.Equal(t, "{\n  \"who\": \"fast\"\n}", b.Output(alice))
}

func TestSignIn(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "482841235",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("mysecret"))
	require.NoError(t, err)

	api := &fakeAPI{replies: map[string]reply{PathSignIn: ok(`{"token":"` + tok + `"}`)}}
	b, h := newBridge(api)

	s, err := b.SignIn(context.Background(), model.SignInQuery{Username: "u", Password: "p"}, "")
	require.NoError(t, err)
	assert.Equal(t, "482841235", s.AllyCode)
	assert.Equal(t, "", b.Output(alice), "sign-in never touches the output region")
	assert.Empty(t, h.records)
}

func TestSignIn_Failures(t *testing.T) {
	api := &fakeAPI{replies: map[string]reply{PathSignIn: ok(`{"nope":1}`)}}
	b, _ := newBridge(api)

	_, err := b.SignIn(context.Background(), model.SignInQuery{}, "")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedResponse))

	api.replies[PathSignIn] = ok(`{"token":"forged"}`)
	_, err = b.SignIn(context.Background(), model.SignInQuery{}, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidSession))

	api.replies[PathSignIn] = reply{err: apperrors.NewBackendStatus(401, "")}
	_, err = b.SignIn(context.Background(), model.SignInQuery{}, "")
	assert.True(t, errors.Is(err, apperrors.ErrBackendStatus))
}

func TestRefreshAccount(t *testing.T) {
	api := &fakeAPI{replies: map[string]reply{PathRefreshAccount: ok(`{"name":"Player"}`)}}
	b, _ := newBridge(api)

	res := b.RefreshAccount(context.Background(), alice, "tok", "")
	require.True(t, res.OK())
	assert.Equal(t, "GET", api.sent[0].Method)
	assert.Nil(t, api.sent[0].Body)
	assert.Equal(t, "tok", api.sent[0].Bearer)
}

func TestLookup_ClientsDoNotShareOutput(t *testing.T) {
	api := &fakeAPI{replies: map[string]reply{
		PathAccount:    ok(`{"allyCode":"482841235","secret":"private roster"}`),
		PathCharacters: ok(`{"name":"Rex"}`),
	}}
	b, h := newBridge(api)

	require.True(t, b.LookupAccount(context.Background(), alice, model.AccountQuery{AllyCode: "482841235"}, "tok", "").OK())
	assert.Equal(t, "", b.Output(bob))
	assert.Equal(t, "", b.Output(""))

	require.True(t, b.LookupCharacter(context.Background(), bob, model.CharacterQuery{CharID: "REX"}, "").OK())
	assert.Contains(t, b.Output(alice), "private roster")
	assert.Equal(t, "{\n  \"name\": \"Rex\"\n}", b.Output(bob))

	mine, err := b.Recent(context.Background(), bob, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "character", mine[0].Kind)

	b.Forget(alice)
	assert.Equal(t, "", b.Output(alice))
	require.Len(t, h.records, 2)
}

func TestLookup_StaleCheckIsPerClient(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{replies: map[string]reply{
		PathCharacters + "#slow": {resp: backend.Response{Status: 200, Body: []byte(`{"who":"slow"}`)}, delay: release},
		PathCharacters + "#fast": ok(`{"who":"fast"}`),
	}}
	b, _ := newBridge(api)

	done := make(chan model.Result)
	go func() {
		done <- b.LookupCharacter(context.Background(), alice, model.CharacterQuery{CharID: "slow"}, "")
	}()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.sent) == 1
	}, time.Second, time.Millisecond)

	// 另一个浏览器的新请求不会让 alice 的慢请求过期
	require.True(t, b.LookupCharacter(context.Background(), bob, model.CharacterQuery{CharID: "fast"}, "").OK())
	close(release)
	require.True(t, (<-done).OK())

	assert.Equal(t, "{\n  \"who\": \"slow\"\n}", b.Output(alice))
	assert.Equal(t, "{\n  \"who\": \"fast\"\n}", b.Output(bob))
}

func TestSignUp(t *testing.T) {
	api := &fakeAPI{replies: map[string]reply{PathSignUp: ok(``)}}
	b, h := newBridge(api)

	q := model.SignUpQuery{Username: "han", Password: "solo", AllyCode: "482841235", Email: "han@falcon.io"}
	require.NoError(t, b.SignUp(context.Background(), q, ""))

	require.Len(t, api.sent, 1)
	assert.Equal(t, "POST", api.sent[0].Method)
	assert.Equal(t, "/signUp", api.sent[0].Path)
	assert.Equal(t, q, api.sent[0].Body)
	assert.Empty(t, h.records, "sign-up is not a lookup")

	api.replies[PathSignUp] = reply{err: apperrors.NewBackendStatus(409, "")}
	err := b.SignUp(context.Background(), q, "")
	status, found := apperrors.StatusOf(err)
	assert.True(t, found)
	assert.Equal(t, 409, status)
}
