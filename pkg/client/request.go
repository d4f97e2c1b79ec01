package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// Call describes one API command.
type Call struct {
	// Method defaults to GET, or POST when Body is set.
	Method string
	// EventID scopes the command to one event. Empty addresses the public API.
	EventID string
	// Command is the path below /api/, e.g. "data/list". Placeholders such
	// as {pid} are filled from PathParams and escaped as one path segment.
	Command    string
	PathParams map[string]any
	Params     *Params
	Body       Body
}

// Body is a request payload. See JSONBody, FormBody and RawBody.
type Body interface {
	encode() (io.Reader, string, error)
}

type jsonBody struct{ v any }

// JSONBody encodes v as JSON.
func JSONBody(v any) Body { return jsonBody{v: v} }

func (b jsonBody) encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.v)
	if err != nil {
		return nil, "", &BuildError{Reason: "encoding JSON body", Err: err}
	}
	return bytes.NewReader(data), "application/json", nil
}

type formBody struct{ p *Params }

// FormBody sends p as an urlencoded form.
func FormBody(p *Params) Body { return formBody{p: p} }

func (b formBody) encode() (io.Reader, string, error) {
	s, err := b.p.Encode()
	if err != nil {
		return nil, "", err
	}
	return strings.NewReader(s), "application/x-www-form-urlencoded", nil
}

type rawBody struct {
	contentType string
	data        []byte
}

// RawBody sends data verbatim.
func RawBody(contentType string, data []byte) Body {
	return rawBody{contentType: contentType, data: data}
}

func (b rawBody) encode() (io.Reader, string, error) {
	return bytes.NewReader(b.data), b.contentType, nil
}

// BuildRequest turns a Call into an HTTP request against the client's base
// URL. It performs no I/O and does not attach the session token.
func (c *Client) BuildRequest(ctx context.Context, call Call) (*http.Request, error) {
	u, err := c.commandURL(call)
	if err != nil {
		return nil, err
	}

	method := call.Method
	var (
		body        io.Reader
		contentType string
	)
	if call.Body != nil {
		body, contentType, err = call.Body.encode()
		if err != nil {
			return nil, withCommand(err, call.Command)
		}
		if method == "" {
			method = http.MethodPost
		}
	}
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &BuildError{Command: call.Command, Reason: "creating request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) commandURL(call Call) (string, error) {
	if call.Command == "" {
		return "", &BuildError{Reason: "empty command"}
	}
	path, err := expandCommand(call.Command, call.PathParams)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(c.baseURL)
	if call.EventID != "" {
		b.WriteString("/_")
		b.WriteString(url.PathEscape(call.EventID))
	}
	b.WriteString("/api/")
	b.WriteString(strings.TrimPrefix(path, "/"))

	query, err := call.Params.Encode()
	if err != nil {
		return "", withCommand(err, call.Command)
	}
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String(), nil
}

// expandCommand substitutes {name} placeholders in a command template.
func expandCommand(tmpl string, values map[string]any) (string, error) {
	if strings.IndexByte(tmpl, '{') < 0 {
		return tmpl, nil
	}
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", &BuildError{Command: tmpl, Reason: "unterminated placeholder"}
		}
		name := rest[open+1 : open+end]
		v, ok := values[name]
		if !ok || v == nil {
			return "", &BuildError{Command: tmpl, Param: name, Reason: "missing path parameter"}
		}
		s, err := rrtype.FormatParam(v)
		if err != nil {
			return "", &BuildError{Command: tmpl, Param: name, Reason: "cannot format path parameter", Err: err}
		}
		if s == "" {
			return "", &BuildError{Command: tmpl, Param: name, Reason: "empty path parameter"}
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(s))
		rest = rest[open+end+1:]
	}
}

func withCommand(err error, command string) error {
	if be, ok := err.(*BuildError); ok && be.Command == "" {
		c := *be
		c.Command = command
		return &c
	}
	return err
}
