//go:build integration

package orgs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts PostgreSQL and applies the membership schema
func setupPostgresContainer(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("coachgate_test"),
		postgres.WithUsername("coachgate"),
		postgres.WithPassword("coachgate_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, RunMigrations(ctx, db, observability.NewNopLogger()))
	return db
}

func TestPostgresService_Integration(t *testing.T) {
	db := setupPostgresContainer(t)
	store := NewPostgresService(db)
	classifier := NewClassifier(store, store)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO organizations (id, name) VALUES ($1, $2)`, orgA, "Barbell Club")
	require.NoError(t, err)

	_, err = classifier.CoachUserIDs(ctx, orgA)
	assert.ErrorIs(t, err, ErrNoCoachFound)

	_, err = store.AddMember(ctx, orgA, coach1, auth.RoleOwner, nil)
	require.NoError(t, err)
	_, err = store.AddMember(ctx, orgA, athl1, auth.RoleMember, nil)
	require.NoError(t, err)

	_, err = store.AddMember(ctx, orgA, athl1, auth.RoleAdmin, nil)
	assert.ErrorIs(t, err, ErrMemberExists)

	ids, err := classifier.CoachUserIDs(ctx, orgA)
	require.NoError(t, err)
	assert.Equal(t, []string{coach1}, ids)

	member, err := store.FindMembership(ctx, athl1, orgA)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleMember, member.Role)

	require.NoError(t, store.RemoveMember(ctx, orgA, athl1))
	_, err = store.FindMembership(ctx, athl1, orgA)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}
