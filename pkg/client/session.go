package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// State is the session lifecycle state.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged out"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// loggedOutToken is the token value the API uses for "no session".
const loggedOutToken = "0"

type sessionSnapshot struct {
	state    State
	token    string
	expires  time.Time
	signInAs string
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionToken returns the current session token, or "" when logged out.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Expiry returns the expiry the server declared at login, or the zero time.
func (c *Client) Expiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expires
}

// SignedInAs returns the account passed to WithSignInAs at login.
func (c *Client) SignedInAs() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signInAs
}

// Login exchanges credentials for a session token.
//
// A server rejection fails with *AuthenticationError and leaves the client
// logged out. Accounts that need a one-time code fail with ErrTOTPRequired
// when none was supplied. Cancellation, transport failures and server errors
// leave the previous session untouched.
func (c *Client) Login(ctx context.Context, creds Credentials, opts ...LoginOption) error {
	var o loginOptions
	for _, opt := range opts {
		opt(&o)
	}

	form := &Params{}
	_, withCode := creds.(UserPasswordTOTP)
	switch cr := creds.(type) {
	case APIKey:
		if cr.Key == "" {
			return &BuildError{Command: "public/login", Param: "apikey", Reason: "empty API key"}
		}
		form.Set("apikey", cr.Key)
	case UserPassword:
		if cr.User == "" {
			return &BuildError{Command: "public/login", Param: "user", Reason: "empty user name"}
		}
		form.Set("user", cr.User).Set("pw", cr.Password)
	case UserPasswordTOTP:
		if cr.User == "" {
			return &BuildError{Command: "public/login", Param: "user", Reason: "empty user name"}
		}
		if cr.Code == "" {
			return &BuildError{Command: "public/login", Param: "totp", Reason: "empty one-time code"}
		}
		form.Set("user", cr.User).Set("pw", cr.Password).Set("totp", cr.Code)
	case nil:
		return &BuildError{Command: "public/login", Reason: "nil credentials"}
	default:
		return &BuildError{Command: "public/login", Reason: fmt.Sprintf("unsupported credentials %T", creds)}
	}
	if o.signInAs != "" {
		form.Set("signinas", o.signInAs)
	}

	req, err := c.BuildRequest(ctx, Call{Method: http.MethodPost, Command: "public/login", Body: FormBody(form)})
	if err != nil {
		return err
	}

	c.mu.Lock()
	prev := sessionSnapshot{state: c.state, token: c.token, expires: c.expires, signInAs: c.signInAs}
	c.state = StateAuthenticating
	c.mu.Unlock()

	body, err := c.send(req, "public/login")
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.statusCode >= 500 {
			c.restore(prev)
			return fmt.Errorf("logging in: %w", err)
		}
		c.clear()
		if apiErr.totpRequired() && !withCode {
			slog.Debug("login needs one-time code")
			return ErrTOTPRequired
		}
		return &AuthenticationError{StatusCode: apiErr.statusCode, Message: apiErr.message}
	}

	token, expires, err := parseLoginResponse(body)
	if err != nil {
		c.clear()
		return err
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.token = token
	c.expires = expires
	c.signInAs = o.signInAs
	c.mu.Unlock()

	slog.Debug("logged in",
		slog.String("credentials", fmt.Sprintf("%T", creds)),
		slog.Time("expires", expires),
	)
	return nil
}

type loginResponse struct {
	SessionID string `json:"SessionID"`
	Token     string `json:"Token"`
	Expires   string `json:"Expires"`
}

// parseLoginResponse accepts the bare session ID the API normally returns,
// a JSON string, or an object carrying the ID and an expiry.
func parseLoginResponse(body []byte) (string, time.Time, error) {
	s := strings.TrimSpace(string(body))
	var expires time.Time

	switch {
	case strings.HasPrefix(s, "{"):
		var lr loginResponse
		if err := json.Unmarshal([]byte(s), &lr); err != nil {
			return "", time.Time{}, &AuthenticationError{Message: "malformed login response: " + err.Error()}
		}
		s = lr.SessionID
		if s == "" {
			s = lr.Token
		}
		if lr.Expires != "" {
			v, err := rrtype.Decode(lr.Expires, rrtype.DateTime)
			if err != nil {
				return "", time.Time{}, fmt.Errorf("login response expiry: %w", err)
			}
			expires, _ = v.AsTime()
		}
	case strings.HasPrefix(s, `"`):
		if err := json.Unmarshal([]byte(s), &s); err != nil {
			return "", time.Time{}, &AuthenticationError{Message: "malformed login response: " + err.Error()}
		}
	}

	if s == "" || s == loggedOutToken {
		return "", time.Time{}, &AuthenticationError{Message: "server returned no session"}
	}
	return s, expires, nil
}

// Logout invalidates the session on the server and always clears it
// locally, even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	defer c.clear()

	if token == "" {
		return nil
	}

	req, err := c.BuildRequest(ctx, Call{Command: "public/logout"})
	if err != nil {
		return err
	}
	setBearer(req, token)
	if _, err := c.send(req, "public/logout"); err != nil && !IsInvalidSession(err) {
		slog.Debug("server logout failed", slog.String("error", err.Error()))
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// EnsureAuthenticated returns nil if the client holds a session that is not
// known to be expired, and ErrNotLoggedIn otherwise. A session past its
// declared expiry is cleared.
func (c *Client) EnsureAuthenticated() error {
	_, err := c.currentToken()
	return err
}

// Attach sets the session token on req.
func (c *Client) Attach(req *http.Request) error {
	_, err := c.attach(req)
	return err
}

func (c *Client) attach(req *http.Request) (string, error) {
	token, err := c.currentToken()
	if err != nil {
		return "", err
	}
	setBearer(req, token)
	return token, nil
}

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

func (c *Client) currentToken() (string, error) {
	c.mu.RLock()
	state, token, expires := c.state, c.token, c.expires
	c.mu.RUnlock()

	if state != StateAuthenticated || token == "" {
		return "", ErrNotLoggedIn
	}
	if !expires.IsZero() && !c.now().Before(expires) {
		c.expire(token)
		return "", fmt.Errorf("%w: session expired at %s", ErrNotLoggedIn, expires.Format(time.RFC3339))
	}
	return token, nil
}

// expire logs out if token is still the current session. A newer login is
// left alone.
func (c *Client) expire(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != token {
		return
	}
	c.state = StateLoggedOut
	c.token = ""
	c.expires = time.Time{}
	c.signInAs = ""
	slog.Debug("session invalidated")
}

func (c *Client) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLoggedOut
	c.token = ""
	c.expires = time.Time{}
	c.signInAs = ""
}

func (c *Client) restore(s sessionSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s.state
	c.token = s.token
	c.expires = s.expires
	c.signInAs = s.signInAs
}
