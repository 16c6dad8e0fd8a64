// Package testkit builds a fully wired service graph on an in-memory sqlite
// database for tests
package testkit

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"bitwise74/account-api/config"
	"bitwise74/account-api/db"
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/pkg/security"

	"github.com/stretchr/testify/require"
)

const Password = "Passw0rd!"

var (
	ErrMailDown = errors.New("smtp unavailable")

	tokenRe = regexp.MustCompile(`[0-9a-f]{64}`)
)

// Mailer records every mail. While Down is set every send fails.
type Mailer struct {
	mu   sync.Mutex
	sent []*service.Mail
	down bool
}

func (m *Mailer) Send(_ context.Context, mail *service.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return ErrMailDown
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *Mailer) SetDown(down bool) {
	m.mu.Lock()
	m.down = down
	m.mu.Unlock()
}

func (m *Mailer) Sent() []*service.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*service.Mail(nil), m.sent...)
}

// Last returns the last delivered mail or nil
func (m *Mailer) Last() *service.Mail {
	sent := m.Sent()
	if len(sent) == 0 {
		return nil
	}
	return sent[len(sent)-1]
}

// Token extracts the plain token embedded in the last delivered mail
func (m *Mailer) Token(t *testing.T) string {
	t.Helper()

	last := m.Last()
	require.NotNil(t, last, "no mail was sent")

	tok := tokenRe.FindString(last.Body)
	require.NotEmpty(t, tok, "mail carries no token")
	return tok
}

// Clock is a settable time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type Env struct {
	*internal.Deps
	Mailer *Mailer
	Clock  *Clock
}

// New returns a fresh environment. The clock starts at a fixed UTC instant.
func New(t *testing.T) *Env {
	t.Helper()

	config.Defaults()

	g, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)

	stores := internal.SQLStores(g)
	t.Cleanup(func() { stores.Close() })

	secrets := security.NewSecretCache(security.StaticSource{
		internal.SecretName("jwt"):     "test-jwt-secret",
		internal.SecretName("api_key"): "test-api-key-secret",
	})

	argon := security.New(4)
	argon.Memory = 8 * 1024
	argon.Iterations = 1

	e := &Env{
		Mailer: &Mailer{},
		Clock:  &Clock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
	}

	e.Deps = internal.Assemble(internal.Options{
		Stores:  *stores,
		Secrets: secrets,
		Mailer:  e.Mailer,
		Links:   &service.Links{Base: "http://localhost/api"},
		Now:     e.Clock.Now,
		Argon:   argon,
	})

	return e
}

// User stores an active account with Password as its password
func (e *Env) User(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()

	hash, err := e.Argon.Hash(context.Background(), Password)
	require.NoError(t, err)

	u := &model.User{
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Email:     email,
		Password:  hash,
		Role:      role,
		Active:    true,
		CreatedAt: e.Clock.Now(),
	}
	require.NoError(t, e.Users.Create(context.Background(), u))
	u.Password = ""

	return u
}

// Notes returns the messages in the user's ledger, oldest first
func (e *Env) Notes(t *testing.T, userID string) []model.Notification {
	t.Helper()

	notes, err := e.Ledger.ForUser(context.Background(), userID)
	require.NoError(t, err)
	return notes
}
