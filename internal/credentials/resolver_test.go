package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trading-journal-go/internal/questrade"
	"trading-journal-go/internal/questrade/questradetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockOpener is a mock implementation of the Opener interface.
type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(ctx context.Context, refreshToken string) (questrade.Client, error) {
	args := m.Called(ctx, refreshToken)
	client, _ := args.Get(0).(questrade.Client)
	return client, args.Error(1)
}

func validClient() *questradetest.MockClient {
	c := new(questradetest.MockClient)
	c.On("ServerTime", mock.Anything).Return(&questrade.ServerTime{Time: "2024-01-05T10:00:00.000000-05:00"}, nil)
	return c
}

func writeTokenFile(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), ".questrade.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestResolve_ExplicitToken(t *testing.T) {
	opener := new(MockOpener)
	client := validClient()
	opener.On("Open", mock.Anything, "explicit_token").Return(client, nil).Once()

	r := NewResolver(opener, DefaultProviders("explicit_token", "/nonexistent"), zap.NewNop())
	res := r.Resolve(context.Background())

	assert.True(t, res.Validated())
	assert.Equal(t, SourceExplicit, res.Credential.Source)
	assert.Equal(t, "explicit_token", res.Credential.Token)
	assert.Same(t, client, res.Client)
	assert.Len(t, res.Attempts, 1)
	opener.AssertExpectations(t)
}

func TestResolve_ExplicitTokenFailureDoesNotFallBack(t *testing.T) {
	opener := new(MockOpener)
	opener.On("Open", mock.Anything, "bad").Return(nil, errors.New("400 Bad Request")).Once()

	path := writeTokenFile(t, `{"refresh_token": "from_file"}`)
	r := NewResolver(opener, DefaultProviders("bad", path), zap.NewNop())
	res := r.Resolve(context.Background())

	assert.False(t, res.Validated())
	assert.Nil(t, res.Client)
	require.Len(t, res.Attempts, 1)
	assert.EqualError(t, res.Attempts[0].Err, "400 Bad Request")
	opener.AssertNotCalled(t, "Open", mock.Anything, "from_file")
}

func TestResolve_ImplicitSessionWins(t *testing.T) {
	opener := new(MockOpener)
	opener.On("Open", mock.Anything, "").Return(validClient(), nil).Once()

	path := writeTokenFile(t, `{"refresh_token": "from_file"}`)
	r := NewResolver(opener, DefaultProviders("", path), zap.NewNop())
	res := r.Resolve(context.Background())

	assert.True(t, res.Validated())
	assert.Equal(t, SourceImplicit, res.Credential.Source)
	assert.Len(t, res.Attempts, 1)
	opener.AssertNumberOfCalls(t, "Open", 1)
}

func TestResolve_FallsBackToDefaultFile(t *testing.T) {
	opener := new(MockOpener)
	opener.On("Open", mock.Anything, "").Return(nil, questrade.ErrNoStoredSession).Once()
	opener.On("Open", mock.Anything, "from_file").Return(validClient(), nil).Once()

	path := writeTokenFile(t, `{"access_token": "x", "refresh_token": "from_file"}`)
	r := NewResolver(opener, DefaultProviders("", path), zap.NewNop())
	res := r.Resolve(context.Background())

	assert.True(t, res.Validated())
	assert.Equal(t, SourceDefaultFile, res.Credential.Source)
	assert.Equal(t, "from_file", res.Credential.Token)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, SourceImplicit, res.Attempts[0].Source)
	assert.ErrorIs(t, res.Attempts[0].Err, questrade.ErrNoStoredSession)
	assert.Equal(t, SourceDefaultFile, res.Attempts[1].Source)
	assert.NoError(t, res.Attempts[1].Err)
	opener.AssertExpectations(t)
}

func TestResolve_ProbeWithoutTimeFails(t *testing.T) {
	noTime := new(questradetest.MockClient)
	noTime.On("ServerTime", mock.Anything).Return(&questrade.ServerTime{}, nil)

	probeErr := new(questradetest.MockClient)
	probeErr.On("ServerTime", mock.Anything).Return(nil, errors.New("connection reset"))

	opener := new(MockOpener)
	opener.On("Open", mock.Anything, "").Return(noTime, nil).Once()
	opener.On("Open", mock.Anything, "from_file").Return(probeErr, nil).Once()

	path := writeTokenFile(t, `{"refresh_token": "from_file"}`)
	r := NewResolver(opener, DefaultProviders("", path), zap.NewNop())
	res := r.Resolve(context.Background())

	assert.False(t, res.Validated())
	assert.Equal(t, SourceNone, res.Credential.Source)
	require.Len(t, res.Attempts, 2)
	assert.Contains(t, res.Attempts[0].Err.Error(), "no time field")
	assert.Contains(t, res.Attempts[1].Err.Error(), "connection reset")
}

func TestResolve_MissingOrEmptyDefaultFile(t *testing.T) {
	testCases := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"Missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.json") }},
		{"NoKey", func(t *testing.T) string { return writeTokenFile(t, `{"access_token": "x"}`) }},
		{"Malformed", func(t *testing.T) string { return writeTokenFile(t, `{"refresh_token":`) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opener := new(MockOpener)
			opener.On("Open", mock.Anything, "").Return(nil, questrade.ErrNoStoredSession).Once()

			r := NewResolver(opener, DefaultProviders("", tc.path(t)), zap.NewNop())
			res := r.Resolve(context.Background())

			assert.False(t, res.Validated())
			require.Len(t, res.Attempts, 2)
			assert.Error(t, res.Attempts[1].Err)
			opener.AssertNumberOfCalls(t, "Open", 1)
		})
	}
}

func TestResolve_PanicIsContained(t *testing.T) {
	opener := new(MockOpener)
	opener.On("Open", mock.Anything, "tok").Run(func(mock.Arguments) {
		panic("client blew up")
	})

	r := NewResolver(opener, DefaultProviders("tok", ""), zap.NewNop())

	var res *Resolution
	assert.NotPanics(t, func() { res = r.Resolve(context.Background()) })
	assert.False(t, res.Validated())
	require.Len(t, res.Attempts, 1)
	assert.Contains(t, res.Attempts[0].Err.Error(), "client blew up")
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "explicit", SourceExplicit.String())
	assert.Equal(t, "implicit", SourceImplicit.String())
	assert.Equal(t, "default-file", SourceDefaultFile.String())
	assert.Equal(t, "none", SourceNone.String())
}
