package intacct

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const loginResponseTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<response>
  <control><status>success</status></control>
  <operation>
    <authentication>
      <status>success</status>
      <sessiontimeout>%s</sessiontimeout>
    </authentication>
    <result>
      <status>success</status>
      <function>getAPISession</function>
      <controlid>c1</controlid>
      <data>
        <api>
          <sessionid>%s</sessionid>
          <endpoint>https://example.test/gw</endpoint>
        </api>
      </data>
    </result>
  </operation>
</response>`

func testCreds() Credentials {
	return Credentials{
		CompanyID:      "acme",
		SenderID:       "sender",
		SenderPassword: "sender-pw",
		UserID:         "user",
		UserPassword:   "user-pw",
		UseLocations:   true,
	}
}

func TestSessionReusedWithinScope(t *testing.T) {
	logins := 0
	timeout := time.Now().Add(2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		logins++
		fmt.Fprintf(w, loginResponseTemplate, timeout, fmt.Sprintf("sess-%d", logins))
	}))
	defer srv.Close()

	m := NewSessionManager(NewTransport(srv.URL, zap.NewNop()), testCreds(), zap.NewNop())

	first, err := m.EnsureSession(context.Background(), "SUB-A")
	require.NoError(t, err)
	second, err := m.EnsureSession(context.Background(), "SUB-A")
	require.NoError(t, err)

	assert.Equal(t, 1, logins)
	assert.Equal(t, first.Token, second.Token)
}

func TestSessionScopeSwitchForcesRelogin(t *testing.T) {
	logins := 0
	var bodies []string
	timeout := time.Now().Add(2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		logins++
		fmt.Fprintf(w, loginResponseTemplate, timeout, fmt.Sprintf("sess-%d", logins))
	}))
	defer srv.Close()

	m := NewSessionManager(NewTransport(srv.URL, zap.NewNop()), testCreds(), zap.NewNop())

	// A then B then A again: three logins, no cross-scope reuse.
	a1, err := m.EnsureSession(context.Background(), "SUB-A")
	require.NoError(t, err)
	b, err := m.EnsureSession(context.Background(), "SUB-B")
	require.NoError(t, err)
	a2, err := m.EnsureSession(context.Background(), "SUB-A")
	require.NoError(t, err)

	assert.Equal(t, 3, logins)
	assert.NotEqual(t, a1.Token, b.Token)
	assert.NotEqual(t, b.Token, a2.Token)

	require.Len(t, bodies, 3)
	assert.Contains(t, bodies[0], "<locationid>SUB-A</locationid>")
	assert.Contains(t, bodies[1], "<locationid>SUB-B</locationid>")
}

func TestSessionTopLevelLoginOmitsLocation(t *testing.T) {
	var body string
	timeout := time.Now().Add(2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		fmt.Fprintf(w, loginResponseTemplate, timeout, "sess-1")
	}))
	defer srv.Close()

	m := NewSessionManager(NewTransport(srv.URL, zap.NewNop()), testCreds(), zap.NewNop())
	_, err := m.EnsureSession(context.Background(), "TOP_LEVEL")
	require.NoError(t, err)
	assert.NotContains(t, body, "<locationid>")
}

func TestSessionConfiguredLocationUsedAtTopLevel(t *testing.T) {
	var bodies []string
	timeout := time.Now().Add(2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		fmt.Fprintf(w, loginResponseTemplate, timeout, fmt.Sprintf("sess-%d", len(bodies)))
	}))
	defer srv.Close()

	creds := testCreds()
	creds.LocationID = "HQ-100"
	m := NewSessionManager(NewTransport(srv.URL, zap.NewNop()), creds, zap.NewNop())

	_, err := m.EnsureSession(context.Background(), "TOP_LEVEL")
	require.NoError(t, err)
	_, err = m.EnsureSession(context.Background(), "SUB-A")
	require.NoError(t, err)

	// the configured location covers top-level logins only; a scoped
	// login targets its own subsidiary
	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], "<locationid>HQ-100</locationid>")
	assert.Contains(t, bodies[1], "<locationid>SUB-A</locationid>")
	assert.NotContains(t, bodies[1], "HQ-100")
}

func TestSessionRefreshedNearExpiry(t *testing.T) {
	logins := 0
	expiry := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		logins++
		fmt.Fprintf(w, loginResponseTemplate, expiry.Format(time.RFC3339), fmt.Sprintf("sess-%d", logins))
	}))
	defer srv.Close()

	m := NewSessionManager(NewTransport(srv.URL, zap.NewNop()), testCreds(), zap.NewNop())
	m.now = func() time.Time { return expiry.Add(-time.Hour) }

	_, err := m.EnsureSession(context.Background(), "SUB-A")
	require.NoError(t, err)
	require.Equal(t, 1, logins)

	// 60s of lifetime left is inside the expiry margin.
	m.now = func() time.Time { return expiry.Add(-60 * time.Second) }
	_, err = m.EnsureSession(context.Background(), "SUB-A")
	require.NoError(t, err)
	assert.Equal(t, 2, logins)
}

func TestSessionTimeoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, loginResponseTemplate, "not-a-date", "sess-1")
	}))
	defer srv.Close()

	m := NewSessionManager(NewTransport(srv.URL, zap.NewNop()), testCreds(), zap.NewNop())
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	session, err := m.EnsureSession(context.Background(), "TOP_LEVEL")
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), session.ExpiresAt)
}

func TestSessionLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, strings.ReplaceAll(
			fmt.Sprintf(loginResponseTemplate, "", "x"),
			"<status>success</status>", "<status>failure</status>"))
	}))
	defer srv.Close()

	m := NewSessionManager(NewTransport(srv.URL, zap.NewNop()), testCreds(), zap.NewNop())
	_, err := m.EnsureSession(context.Background(), "TOP_LEVEL")
	require.Error(t, err)
}
