package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/raceresult-go/internal/rrtest"
)

func newTestClient(t *testing.T) (*Client, *rrtest.Server) {
	t.Helper()
	srv := rrtest.NewServer(t)
	srv.AddAPIKey("key-1")
	srv.AddUser("alice", "secret", "")
	srv.AddUser("bob", "hunter2", "123456")
	srv.HandleJSON("", "public/userinfo", UserInfo{CustNo: 42, UserName: "alice"})
	return New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client())), srv
}

func TestLogin_AttachesTokenOnce(t *testing.T) {
	creds := []Credentials{
		APIKey{Key: "key-1"},
		UserPassword{User: "alice", Password: "secret"},
		UserPasswordTOTP{User: "bob", Password: "hunter2", Code: "123456"},
	}
	for _, cr := range creds {
		t.Run(cr.(interface{ String() string }).String(), func(t *testing.T) {
			c, srv := newTestClient(t)
			require.NoError(t, c.Login(context.Background(), cr))
			assert.Equal(t, StateAuthenticated, c.State())

			_, err := c.UserInfo(context.Background())
			require.NoError(t, err)

			reqs := srv.CommandRequests("public/userinfo")
			require.Len(t, reqs, 1)
			assert.Equal(t, "Bearer "+c.SessionToken(), reqs[0].Authorization)
			assert.NotEqual(t, "Bearer ", reqs[0].Authorization)
		})
	}
}

func TestLogin_FormFields(t *testing.T) {
	c, srv := newTestClient(t)
	require.NoError(t, c.Login(context.Background(), UserPassword{User: "alice", Password: "secret"}, WithSignInAs("carol")))

	logins := srv.CommandRequests("public/login")
	require.Len(t, logins, 1)
	assert.Equal(t, http.MethodPost, logins[0].Method)
	assert.Equal(t, "alice", logins[0].Form.Get("user"))
	assert.Equal(t, "secret", logins[0].Form.Get("pw"))
	assert.Equal(t, "carol", logins[0].Form.Get("signinas"))
	assert.Empty(t, logins[0].Authorization)
	assert.Equal(t, "carol", c.SignedInAs())
}

func TestLogin_TOTPRequired(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	err := c.Login(ctx, UserPassword{User: "bob", Password: "hunter2"})
	require.ErrorIs(t, err, ErrTOTPRequired)
	assert.Equal(t, StateLoggedOut, c.State())

	require.NoError(t, c.Login(ctx, UserPasswordTOTP{User: "bob", Password: "hunter2", Code: "123456"}))
	assert.Equal(t, StateAuthenticated, c.State())
}

func TestLogin_WrongCodeIsAuthenticationError(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.Login(context.Background(), UserPasswordTOTP{User: "bob", Password: "hunter2", Code: "000000"})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, errors.Is(err, ErrTOTPRequired))
	assert.Equal(t, StateLoggedOut, c.State())
}

func TestLogin_Rejected(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.Login(context.Background(), UserPassword{User: "alice", Password: "wrong"})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, StateLoggedOut, c.State())
	assert.Empty(t, c.SessionToken())
}

func TestLogin_InvalidInputNeverSent(t *testing.T) {
	c, srv := newTestClient(t)

	var buildErr *BuildError
	require.ErrorAs(t, c.Login(context.Background(), APIKey{}), &buildErr)
	require.ErrorAs(t, c.Login(context.Background(), nil), &buildErr)
	require.ErrorAs(t, c.Login(context.Background(), UserPasswordTOTP{User: "bob", Password: "x"}), &buildErr)
	assert.Empty(t, srv.Requests())
}

func TestLogin_CancelledKeepsPriorSession(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Login(context.Background(), APIKey{Key: "key-1"}))
	token := c.SessionToken()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Login(ctx, UserPassword{User: "alice", Password: "secret"})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateAuthenticated, c.State())
	assert.Equal(t, token, c.SessionToken())
}

func TestLogin_CancelledFromLoggedOut(t *testing.T) {
	c, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, c.Login(ctx, APIKey{Key: "key-1"}))
	assert.Equal(t, StateLoggedOut, c.State())
}

func TestDo_NotLoggedInSendsNothing(t *testing.T) {
	c, srv := newTestClient(t)

	_, err := c.UserInfo(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Empty(t, srv.Requests())
}

func TestDo_SessionExpiredByServer(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, APIKey{Key: "key-1"}))

	srv.Invalidate()

	_, err := c.UserInfo(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, IsInvalidSession(err))
	assert.Equal(t, StateLoggedOut, c.State())

	before := len(srv.Requests())
	_, err = c.UserInfo(ctx)
	require.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Len(t, srv.Requests(), before, "no request after the session is gone")

	require.NoError(t, c.Login(ctx, APIKey{Key: "key-1"}))
	_, err = c.UserInfo(ctx)
	require.NoError(t, err)
}

func TestEnsureAuthenticated_LocalExpiry(t *testing.T) {
	c, srv := newTestClient(t)
	now := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	srv.SetLoginExpiry(now.Add(time.Hour))

	require.NoError(t, c.Login(context.Background(), APIKey{Key: "key-1"}))
	assert.True(t, now.Add(time.Hour).Equal(c.Expiry()))
	require.NoError(t, c.EnsureAuthenticated())

	now = now.Add(2 * time.Hour)
	err := c.EnsureAuthenticated()
	require.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, StateLoggedOut, c.State())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, APIKey{Key: "key-1"}))

	srv.FailLogout(true)
	err := c.Logout(ctx)
	require.Error(t, err)
	assert.Equal(t, StateLoggedOut, c.State())
	assert.Empty(t, c.SessionToken())

	_, err = c.UserInfo(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

// dropLogout fails public/logout before it reaches the server.
type dropLogout struct{ next HTTPDoer }

func (d dropLogout) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/public/logout") {
		return nil, errors.New("connection reset by peer")
	}
	return d.next.Do(req)
}

func TestLogout_ClearsOnTransportError(t *testing.T) {
	_, srv := newTestClient(t)
	c := New(WithBaseURL(srv.URL), WithHTTPClient(dropLogout{next: srv.Client()}))
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, APIKey{Key: "key-1"}))
	require.Equal(t, StateAuthenticated, c.State())

	err := c.Logout(ctx)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StateLoggedOut, c.State())
	assert.Empty(t, c.SessionToken())
	assert.Empty(t, srv.CommandRequests("public/logout"))

	_, err = c.UserInfo(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLogout_InvalidatesServerSession(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, APIKey{Key: "key-1"}))
	require.Equal(t, 1, srv.ActiveSessions())

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, 0, srv.ActiveSessions())
	assert.NoError(t, c.Logout(ctx), "logging out twice is harmless")
}

func TestAttach_Idempotent(t *testing.T) {
	c := New(WithSession("abc"))
	req, err := c.BuildRequest(context.Background(), Call{Command: "public/userinfo"})
	require.NoError(t, err)

	require.NoError(t, c.Attach(req))
	require.NoError(t, c.Attach(req))
	assert.Equal(t, []string{"Bearer abc"}, req.Header.Values("Authorization"))
}

func TestWithSession_LoggedOutToken(t *testing.T) {
	c := New(WithSession(loggedOutToken))
	assert.Equal(t, StateLoggedOut, c.State())
}

func TestParseLoginResponse(t *testing.T) {
	tok, exp, err := parseLoginResponse([]byte("abc123\n"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)
	assert.True(t, exp.IsZero())

	tok, _, err = parseLoginResponse([]byte(`"abc123"`))
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	tok, exp, err = parseLoginResponse([]byte(`{"SessionID":"s1","Expires":"2024-05-17 10:00:00"}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", tok)
	assert.Equal(t, time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC), exp)

	for _, body := range []string{"", "0", `{"Expires":""}`} {
		_, _, err = parseLoginResponse([]byte(body))
		var authErr *AuthenticationError
		assert.ErrorAs(t, err, &authErr, body)
	}
}

func TestDo_ConcurrentQueries(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, APIKey{Key: "key-1"}))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.UserInfo(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
