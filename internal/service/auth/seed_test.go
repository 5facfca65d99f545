package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/bookshelf/internal/domain"
)

func TestSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	doc := `users:
  - email: admin@example.com
    password: Adm1n!Pass
    name: Ada
    surname: Lovelace
    role: admin
  - email: reader@example.com
    password: Read3r!Pass
    name: Rita
    surname: Reader
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	seeds, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	users := newMemUsers()
	svc := newTestService(t, users)

	created, err := svc.Seed(context.Background(), seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	admin, err := users.GetUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	reader, err := users.GetUserByEmail(context.Background(), "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, reader.Role)

	created, err = svc.Seed(context.Background(), seeds)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSeedRejectsBadEntries(t *testing.T) {
	svc := newTestService(t, newMemUsers())

	_, err := svc.Seed(context.Background(), []SeedUser{{Email: "x@example.com", Password: "Str0ng!Pass", Role: "owner"}})
	assert.ErrorContains(t, err, "unknown role")

	_, err = svc.Seed(context.Background(), []SeedUser{{Email: "x@example.com"}})
	assert.ErrorContains(t, err, "email and password are required")

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
