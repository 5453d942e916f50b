package intacct

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// sessionExpiryMargin is the remaining lifetime below which a session is
// treated as expired and replaced before the next request.
const sessionExpiryMargin = 120 * time.Second

// defaultSessionLifetime is assumed when the gateway omits or mangles the
// session timeout field.
const defaultSessionLifetime = time.Hour

// Session is one authenticated gateway session. A session is valid for
// exactly one scope and is never shared across scopes.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Scope     syncdomain.ScopeID
}

// SessionManager owns the single active session. Switching scope discards
// the held session before any request is issued under the new scope; the
// orchestrator batches work by scope to amortize the login round trip.
type SessionManager struct {
	transport *Transport
	creds     Credentials
	log       *zap.Logger

	current *Session
	now     func() time.Time
}

// NewSessionManager creates a manager with no active session.
func NewSessionManager(transport *Transport, creds Credentials, log *zap.Logger) *SessionManager {
	return &SessionManager{
		transport: transport,
		creds:     creds,
		log:       log.Named("session"),
		now:       time.Now,
	}
}

// EnsureSession returns a session valid for scope, reusing the held one
// when its scope matches and expiry is not imminent, and performing a fresh
// login otherwise. Login failure is fatal for the scope; the caller decides
// whether to continue with other scopes.
func (m *SessionManager) EnsureSession(ctx context.Context, scope syncdomain.ScopeID) (*Session, error) {
	if m.valid(scope) {
		return m.current, nil
	}
	m.current = nil

	session, err := m.login(ctx, scope)
	if err != nil {
		return nil, err
	}
	m.current = session
	return session, nil
}

// Invalidate discards the held session.
func (m *SessionManager) Invalidate() {
	m.current = nil
}

func (m *SessionManager) valid(scope syncdomain.ScopeID) bool {
	if m.current == nil {
		return false
	}
	if m.current.Scope != scope {
		return false
	}
	return m.current.ExpiresAt.Sub(m.now()) >= sessionExpiryMargin
}

func (m *SessionManager) login(ctx context.Context, scope syncdomain.ScopeID) (*Session, error) {
	// The configured location narrows top-level logins; a scoped login
	// always targets its own subsidiary.
	locationID := m.creds.LocationID
	if m.creds.UseLocations && !scope.IsTopLevel() {
		locationID = string(scope)
	}

	envelope := loginEnvelope(m.creds, locationID, m.now())
	body, err := envelope.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: encoding login request: %v", syncdomain.ErrAuthenticationFailed, err)
	}

	m.log.Info("authenticating against gateway", zap.String("scope", string(scope)))
	raw, err := m.transport.Send(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrAuthenticationFailed, err)
	}

	resp, err := parseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrAuthenticationFailed, err)
	}
	if resp.Operation == nil {
		return nil, fmt.Errorf("%w: %s", syncdomain.ErrAuthenticationFailed, resp.ErrorMessage.Message())
	}
	if resp.Operation.Authentication.Status != "success" {
		return nil, fmt.Errorf("%w: %s", syncdomain.ErrAuthenticationFailed, resp.Operation.ErrorMessage.Message())
	}
	if len(resp.Operation.Results) == 0 {
		return nil, fmt.Errorf("%w: login response carried no result", syncdomain.ErrAuthenticationFailed)
	}

	result := resp.Operation.Results[0]
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrAuthenticationFailed, err)
	}

	records, err := parseDataRecords(result.Data.Inner)
	if err != nil || len(records) == 0 {
		return nil, fmt.Errorf("%w: login response carried no session", syncdomain.ErrAuthenticationFailed)
	}
	token := records[0]["sessionid"]
	if token == "" {
		return nil, fmt.Errorf("%w: login response carried no session id", syncdomain.ErrAuthenticationFailed)
	}

	session := &Session{
		Token:     token,
		ExpiresAt: m.parseTimeout(resp.Operation.Authentication.SessionTimeout),
		Scope:     scope,
	}
	m.log.Info("session established",
		zap.String("scope", string(scope)),
		zap.Time("expires_at", session.ExpiresAt))
	return session, nil
}

// parseTimeout accepts the gateway's session timeout formats, falling back
// to a one hour lifetime when the field is absent or unparseable.
func (m *SessionManager) parseTimeout(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "01/02/2006 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return m.now().Add(defaultSessionLifetime)
}
