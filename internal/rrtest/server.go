// Package rrtest provides an in-process fake of the RACE RESULT web API for
// tests: login and logout, bearer session checks and per-command handlers.
package rrtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// Request is a request the server received.
type Request struct {
	Method        string
	EventID       string
	Command       string
	Query         url.Values
	Form          url.Values
	Authorization string
	Body          []byte
}

type user struct {
	password string
	totp     string
}

// Server is a fake RACE RESULT API. Register credentials with AddAPIKey and
// AddUser and commands with Handle; unknown commands answer 404.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	apiKeys      map[string]bool
	users        map[string]user
	sessions     map[string]bool
	handlers     map[string]http.HandlerFunc
	requests     []Request
	nextSession  int
	loginExpires time.Time
	failLogout   bool
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		apiKeys:  make(map[string]bool),
		users:    make(map[string]user),
		sessions: make(map[string]bool),
		handlers: make(map[string]http.HandlerFunc),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// AddAPIKey accepts key at login.
func (s *Server) AddAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[key] = true
}

// AddUser accepts a user and password at login. A non-empty totp makes the
// account require that one-time code.
func (s *Server) AddUser(name, password, totp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[name] = user{password: password, totp: totp}
}

// SetLoginExpiry makes login answer with a JSON object declaring expires.
func (s *Server) SetLoginExpiry(expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginExpires = expires
}

// FailLogout makes the logout command answer 500.
func (s *Server) FailLogout(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogout = fail
}

// Invalidate drops every open session, as a server restart would.
func (s *Server) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]bool)
}

// ActiveSessions returns the number of open sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Handle registers h for an event command. An empty eventID registers a
// public command. The session is checked before h runs.
func (s *Server) Handle(eventID, command string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[key(eventID, command)] = h
}

// HandleJSON registers a command that always answers v as JSON.
func (s *Server) HandleJSON(eventID, command string, v any) {
	s.Handle(eventID, command, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, v)
	})
}

// Requests returns the requests received so far, logins included.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CommandRequests returns the received requests for one command.
func (s *Server) CommandRequests(command string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Command == command {
			out = append(out, r)
		}
	}
	return out
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an API error body.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	body := map[string]string{"Error": msg}
	if code != "" {
		body["Code"] = code
	}
	WriteJSON(w, status, body)
}

func key(eventID, command string) string { return eventID + "|" + command }

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	eventID, command, ok := splitPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	req := Request{
		Method:        r.Method,
		EventID:       eventID,
		Command:       command,
		Query:         r.URL.Query(),
		Authorization: r.Header.Get("Authorization"),
	}
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err == nil {
			req.Form = r.PostForm
		}
	} else if r.Body != nil {
		req.Body, _ = io.ReadAll(r.Body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	switch {
	case eventID == "" && command == "public/login":
		s.login(w, r, req.Form)
		return
	case eventID == "" && command == "public/logout":
		s.logout(w, req.Authorization)
		return
	}

	if !s.validSession(req.Authorization) {
		WriteError(w, http.StatusUnauthorized, "InvalidSession", "session invalid or expired")
		return
	}

	s.mu.Lock()
	h, found := s.handlers[key(eventID, command)]
	s.mu.Unlock()
	if !found {
		WriteError(w, http.StatusNotFound, "NotFound", "unknown command "+command)
		return
	}
	if req.Body != nil {
		r.Body = io.NopCloser(bytes.NewReader(req.Body))
	}
	h(w, r)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, form url.Values) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "", "login requires POST")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case form.Get("apikey") != "":
		if !s.apiKeys[form.Get("apikey")] {
			WriteError(w, http.StatusUnauthorized, "", "invalid API key")
			return
		}
	case form.Get("user") != "":
		u, ok := s.users[form.Get("user")]
		if !ok || u.password != form.Get("pw") {
			WriteError(w, http.StatusUnauthorized, "", "invalid user name or password")
			return
		}
		if u.totp != "" {
			code := form.Get("totp")
			if code == "" {
				WriteError(w, http.StatusUnauthorized, "TOTPRequired", "TOTP required")
				return
			}
			if code != u.totp {
				WriteError(w, http.StatusUnauthorized, "", "invalid one-time code")
				return
			}
		}
	default:
		WriteError(w, http.StatusBadRequest, "", "no credentials")
		return
	}

	s.nextSession++
	token := fmt.Sprintf("sess-%d", s.nextSession)
	s.sessions[token] = true

	if !s.loginExpires.IsZero() {
		WriteJSON(w, http.StatusOK, map[string]string{
			"SessionID": token,
			"Expires":   s.loginExpires.UTC().Format(time.RFC3339),
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(token))
}

func (s *Server) logout(w http.ResponseWriter, auth string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLogout {
		WriteError(w, http.StatusInternalServerError, "", "logout failed")
		return
	}
	delete(s.sessions, strings.TrimPrefix(auth, "Bearer "))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) validSession(auth string) bool {
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[token]
}

// splitPath parses "/_{event}/api/{cmd}" and "/api/{cmd}".
func splitPath(p string) (eventID, command string, ok bool) {
	if strings.HasPrefix(p, "/_") {
		rest := p[2:]
		i := strings.Index(rest, "/api/")
		if i < 0 {
			return "", "", false
		}
		return rest[:i], rest[i+len("/api/"):], true
	}
	if cmd, found := strings.CutPrefix(p, "/api/"); found {
		return "", cmd, true
	}
	return "", "", false
}
