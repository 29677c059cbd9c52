package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/tleroy/celcat-fetch/internal/transport"
)

const (
	// LoginPath is the Celcat LDAP login page; credentials are posted to
	// LogonPath with the anti-forgery token harvested from it.
	LoginPath = "/LdapLogin"
	LogonPath = "/LdapLogin/Logon"

	tokenField = "__RequestVerificationToken"
)

var (
	// ErrAuthFailed means the service rejected the credentials or returned
	// an unrecognizable login response. Fatal, never retried.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSessionExpired means a request was answered with an authentication
	// challenge after re-authentication had already been attempted.
	ErrSessionExpired = errors.New("session expired")
)

// federationIDPattern matches the student identifier Celcat embeds in the
// post-login page scripts, e.g. federationIds: 'INFO-2024-G1'.
var federationIDPattern = regexp.MustCompile(`federationIds?["']?\s*[:=]\s*["']([^"']+)["']`)

// Credentials identify one user against the service. They are never mutated
// and never logged.
type Credentials struct {
	Username string
	Password string
}

// Session is the authentication state captured by a successful login. Cookie
// state itself lives in the transport client's jar; Session carries the
// metadata the rest of the pipeline needs.
type Session struct {
	Token         string
	FederationID  string
	EstablishedAt time.Time
}

// Authenticator runs the login handshake and guards re-authentication with a
// single-flight group.
type Authenticator struct {
	client *transport.Client
	creds  Credentials

	mu      sync.Mutex
	current *Session
	group   singleflight.Group
}

// New creates an Authenticator bound to one transport client and one set of
// credentials.
func New(client *transport.Client, creds Credentials) *Authenticator {
	return &Authenticator{client: client, creds: creds}
}

// Login performs the full handshake: fetch the login page, harvest the
// anti-forgery token and initial cookies, post the credentials, and verify
// that the service accepted them.
func (a *Authenticator) Login(ctx context.Context) (*Session, error) {
	page, err := a.client.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   LoginPath,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching login page: %w", err)
	}

	token, err := harvestToken(page.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	form := url.Values{}
	form.Set("Name", a.creds.Username)
	form.Set("Password", a.creds.Password)
	form.Set(tokenField, token)

	resp, err := a.client.Do(ctx, transport.RequestSpec{
		Method: http.MethodPost,
		Path:   LogonPath,
		Form:   form,
	})
	if err != nil {
		return nil, fmt.Errorf("submitting credentials: %w", err)
	}

	if err := verifyLogin(resp); err != nil {
		return nil, err
	}

	session := &Session{
		Token:         token,
		FederationID:  extractFederationID(resp.Body),
		EstablishedAt: time.Now().UTC(),
	}

	a.mu.Lock()
	a.current = session
	a.mu.Unlock()

	log.WithFields(log.Fields{
		"user":          a.creds.Username,
		"federation_id": session.FederationID,
	}).Debug("login handshake completed")

	return session, nil
}

// Refresh re-authenticates after a session challenge. Concurrent callers
// holding the same stale session share a single login round trip; a caller
// whose session was already replaced gets the replacement without any
// network traffic.
func (a *Authenticator) Refresh(ctx context.Context, stale *Session) (*Session, error) {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()
	if current != nil && current != stale {
		return current, nil
	}

	v, err, shared := a.group.Do("login", func() (interface{}, error) {
		return a.Login(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("re-authentication shared with concurrent request")
	}
	return v.(*Session), nil
}

// IsChallenge reports whether a response is the service's authentication
// challenge: an explicit 401/403, or a redirect that landed back on the
// login page. The exact signal is deployment-specific; both observed forms
// are covered.
func IsChallenge(resp *transport.Response) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return true
	}
	return resp.FinalURL != nil && isLoginPage(resp.FinalURL.Path)
}

// isLoginPage matches the login page itself, not the logon POST endpoint
// beneath it.
func isLoginPage(path string) bool {
	return strings.TrimRight(path, "/") == LoginPath
}

// harvestToken pulls the anti-forgery token out of the login form.
func harvestToken(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing login page: %w", err)
	}

	token, ok := doc.Find(`input[name="` + tokenField + `"]`).First().Attr("value")
	if !ok || token == "" {
		return "", fmt.Errorf("login page carries no %s field", tokenField)
	}
	return token, nil
}

// verifyLogin inspects the logon response. Celcat answers a failed login
// with 200 and the login form re-rendered with a validation summary, so
// status alone is not enough.
func verifyLogin(resp *transport.Response) error {
	if resp.FinalURL != nil && isLoginPage(resp.FinalURL.Path) {
		return fmt.Errorf("%w: redirected back to login page", ErrAuthFailed)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("%w: parsing logon response: %v", ErrAuthFailed, err)
	}
	if msg := strings.TrimSpace(doc.Find(".validation-summary-errors").Text()); msg != "" {
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	}
	if doc.Find(`input[name="` + tokenField + `"]`).Length() > 0 && doc.Find(`input[name="Password"]`).Length() > 0 {
		return fmt.Errorf("%w: login form re-rendered", ErrAuthFailed)
	}
	return nil
}

// extractFederationID looks for the student's federation identifier on the
// post-login page. Not every deployment exposes it; an empty result just
// means the caller must supply resource IDs explicitly.
func extractFederationID(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if id, ok := doc.Find("[data-federation-id]").First().Attr("data-federation-id"); ok && id != "" {
			return id
		}
	}
	if m := federationIDPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	return ""
}
