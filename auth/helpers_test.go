package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/planora/planora/auth"
)

const (
	testPassword       = "correct-horse-battery"
	testVerifierSecret = "verifier-secret-for-tests"
)

// testConfig implements auth.Config for tests
type testConfig struct {
	accessTTL   time.Duration
	refreshTTL  time.Duration
	verifierTTL time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessTTL:   15 * time.Minute,
		refreshTTL:  24 * time.Hour,
		verifierTTL: 24 * time.Hour,
	}
}

func (c *testConfig) GetSigningKey() string             { return "test-signing-key" }
func (c *testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c *testConfig) GetVerifierSecret() string         { return testVerifierSecret }
func (c *testConfig) GetVerifierTTL() time.Duration     { return c.verifierTTL }
func (c *testConfig) GetIssuer() string                 { return "test-issuer" }
func (c *testConfig) GetAudience() []string             { return []string{"test-audience"} }
func (c *testConfig) GetBaseURL() string                { return "http://app.test" }
func (c *testConfig) GetSenderAddress() string          { return "no-reply@app.test" }

var (
	hashOnce     sync.Once
	passwordHash string
)

// testPasswordHash hashes testPassword exactly once for the whole
// suite. Hashing is deliberately slow, so every fixture user shares
// this one hash.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		var err error
		passwordHash, err = auth.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
	})
	return passwordHash
}

var dbSeq int

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dbSeq++
	dsn := fmt.Sprintf("file:%s%d?mode=memory&cache=shared", t.Name(), dbSeq)

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	return db
}

type userOption func(*auth.User)

func inactive() userOption {
	return func(u *auth.User) { u.IsActive = false }
}

func createUser(t *testing.T, db *bun.DB, email string, opts ...userOption) *auth.User {
	t.Helper()

	user := &auth.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: testPasswordHash(t),
		IsActive:     true,
	}

	for _, opt := range opts {
		opt(user)
	}

	created, err := auth.NewUsersRepository(db).Create(context.Background(), user)
	require.NoError(t, err)

	return created
}

// extractLink pulls the uid and token segments out of a mailed link
// whose path starts with prefix.
func extractLink(t *testing.T, body, prefix string) (uid, token string) {
	t.Helper()

	idx := strings.Index(body, prefix)
	require.GreaterOrEqual(t, idx, 0, "no link with prefix %q in %q", prefix, body)

	rest := strings.TrimPrefix(body[idx:], prefix)
	parts := strings.SplitN(strings.TrimSuffix(rest, "/"), "/", 2)
	require.Len(t, parts, 2, "malformed link in %q", body)

	return parts[0], parts[1]
}

// recordingSink captures audit events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.AuditEvent
}

func (s *recordingSink) Emit(ctx context.Context, evt auth.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) Events() []auth.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}
