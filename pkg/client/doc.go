// Package client provides a Go SDK for the RACE RESULT web API.
//
// The API exposes event data (participants, results, raw timing data and
// change history) of events hosted on events.raceresult.com or a local
// RACE RESULT server. This SDK handles the session lifecycle and request
// encoding; typed table queries live in package query.
//
// # Quick Start
//
// Create a client, log in and list events:
//
//	c := client.New()
//	if err := c.Login(ctx, client.APIKey{Key: key}); err != nil {
//	    return err
//	}
//	events, err := c.EventList(ctx, 2024, "")
//
// Use custom configuration:
//
//	c := client.New(
//	    client.WithServer("localhost:8080", false),
//	    client.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
//	)
//
// # Sessions
//
// Login stores the session token in the client and every later call sends it
// as a bearer token. The client never logs in by itself: calls made without a
// session fail with ErrNotLoggedIn, and a session the server no longer
// accepts fails the call with ErrSessionExpired and logs the client out.
//
// Accounts with two-factor authentication report ErrTOTPRequired for a plain
// UserPassword login:
//
//	err := c.Login(ctx, client.UserPassword{User: u, Password: pw})
//	if errors.Is(err, client.ErrTOTPRequired) {
//	    err = c.Login(ctx, client.UserPasswordTOTP{User: u, Password: pw, Code: code})
//	}
//
// # Events
//
// Event returns a lightweight handle that scopes commands to one event:
//
//	ev := c.Event("123456")
//	body, err := ev.Get(ctx, "data/count", client.NewParams("filter", "[Contest]=1"))
//
// # Errors
//
// Non-200 responses are *APIError values. Use IsNotFound, IsValidation and
// IsInvalidSession to classify them. Connection failures and timeouts are
// *TransportError values and are never retried.
package client
