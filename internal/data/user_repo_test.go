package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	"github.com/target/gatekeeper/internal/testutil"
)

func newAnn() domainauth.NewUser {
	return domainauth.NewUser{Name: "Ann", Email: "ann@x.com", PasswordHash: "$2a$04$fakehashfakehashfakehash"}
}

func TestUserRepo_InsertAndFind(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()

		created, err := repo.Insert(ctx, newAnn())
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, domainauth.RoleUser, created.Role, "role defaults to user")
		assert.False(t, created.CreatedAt.IsZero())

		byEmail, err := repo.FindByEmail(ctx, "ann@x.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
		assert.Equal(t, "$2a$04$fakehashfakehashfakehash", byEmail.PasswordHash)

		byID, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ann", byID.Name)
	})
}

func TestUserRepo_FindByID_ReturnsCanonicalID(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()
		created, err := repo.Insert(ctx, newAnn())
		require.NoError(t, err)

		for _, id := range []string{strings.ToUpper(created.ID), "{" + created.ID + "}", strings.ReplaceAll(created.ID, "-", "")} {
			u, err := repo.FindByID(ctx, id)
			require.NoError(t, err, id)
			assert.Equal(t, created.ID, u.ID)
		}
		require.NoError(t, repo.UpdateRole(ctx, strings.ToUpper(created.ID), domainauth.RoleAdmin))
		role, err := repo.CurrentRole(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleAdmin, role)
	})
}

func TestUserRepo_FindByEmail_ExactMatch(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()
		_, err := repo.Insert(ctx, newAnn())
		require.NoError(t, err)

		_, err = repo.FindByEmail(ctx, "ANN@x.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.FindByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserRepo_Insert_DuplicateEmail(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()

		_, err := repo.Insert(ctx, newAnn())
		require.NoError(t, err)

		_, err = repo.Insert(ctx, newAnn())
		require.ErrorIs(t, err, ErrDuplicateEmail)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestUserRepo_Insert_ConcurrentSameEmail(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = repo.Insert(ctx, newAnn())
			}()
		}
		wg.Wait()

		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDuplicateEmail):
				dup++
			default:
				t.Errorf("unexpected insert error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, workers-1, dup)
	})
}

func TestUserRepo_UpdateRole(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()
		u, err := repo.Insert(ctx, newAnn())
		require.NoError(t, err)

		require.NoError(t, repo.UpdateRole(ctx, u.ID, domainauth.RoleAdmin))
		require.NoError(t, repo.UpdateRole(ctx, u.ID, domainauth.RoleAdmin), "idempotent")

		role, err := repo.CurrentRole(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleAdmin, role)

		require.NoError(t, repo.UpdateRole(ctx, u.ID, domainauth.RoleUser))
		role, err = repo.CurrentRole(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleUser, role)
	})
}

func TestUserRepo_UpdateRole_NotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()

		err := repo.UpdateRole(ctx, "4b0d8f2c-0000-4000-8000-000000000000", domainauth.RoleAdmin)
		assert.ErrorIs(t, err, ErrUserNotFound)

		err = repo.UpdateRole(ctx, "not-a-uuid", domainauth.RoleAdmin)
		assert.ErrorIs(t, err, ErrUserNotFound)

		err = repo.UpdateRole(ctx, "4b0d8f2c-0000-4000-8000-000000000000", domainauth.Role("owner"))
		assert.Error(t, err)
	})
}

func TestUserRepo_List_InsertionOrder(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRepo(db)
		ctx := context.Background()

		for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
			_, err := repo.Insert(ctx, domainauth.NewUser{Name: "N", Email: email, PasswordHash: "h"})
			require.NoError(t, err)
		}

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, "a@x.com", users[0].Email)
		assert.Equal(t, "c@x.com", users[2].Email)
	})
}

func TestUserRepo_FindByID_InvalidUUID(t *testing.T) {
	// No database needed: malformed ids short-circuit.
	repo := NewUserRepo(nil)
	_, err := repo.FindByID(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
