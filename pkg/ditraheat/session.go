package ditraheat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// session owns the cached session token. signing admits one sign-in at a
// time so concurrent callers share its result; waiting honours ctx.
type session struct {
	email    string
	password string
	signIn   func(ctx context.Context, email, password string) (string, error)
	logger   *slog.Logger

	signing chan struct{}

	mu    sync.Mutex
	token string
}

func newSession(email, password string, signIn func(context.Context, string, string) (string, error), logger *slog.Logger) *session {
	return &session{
		email:    email,
		password: password,
		signIn:   signIn,
		logger:   logger,
		signing:  make(chan struct{}, 1),
	}
}

// ensure returns the cached token, signing in first if there is none.
func (s *session) ensure(ctx context.Context) (string, error) {
	if token := s.current(); token != "" {
		return token, nil
	}

	select {
	case s.signing <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.signing }()

	// Another caller may have signed in while we waited.
	if token := s.current(); token != "" {
		return token, nil
	}

	token, err := s.signIn(ctx, s.email, s.password)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("sign in failed", "error", err)
		}
		return "", err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

// invalidate forgets token if it is still the cached one.
func (s *session) invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.token != token {
		return
	}
	s.token = ""
	if s.logger != nil {
		s.logger.Debug("401 unauthorized, clearing session")
	}
}

// current returns the cached token without signing in.
func (s *session) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// signIn exchanges the credentials for a session token.
func (c *Client) signIn(ctx context.Context, email, password string) (string, error) {
	if c.logger != nil {
		c.logger.Debug("signing in", "email", email)
	}

	var resp signInResponse
	req := signInRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, PathSignIn, nil, req, &resp); err != nil {
		return "", err
	}

	if resp.ErrorCode != SignInOK {
		return "", &AuthError{Code: resp.ErrorCode}
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("%w: sign in: missing SessionId", ErrMalformedResponse)
	}
	return resp.SessionID, nil
}

// Invalidate drops the cached session so the next call signs in again.
func (c *Client) Invalidate() {
	c.session.invalidate(c.session.current())
}
