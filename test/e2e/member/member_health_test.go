package member_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crewlane/memberd/pkg/membersdk"
)

// TestLivezEndpoint verifies the liveness check endpoint works without auth.
func TestLivezEndpoint(t *testing.T) {
	baseURL, cleanup := setupMemberContainer(t)
	defer cleanup()

	client := membersdk.New(baseURL)

	health, err := client.Livez(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the readiness check covers the database.
func TestReadyzEndpoint(t *testing.T) {
	baseURL, cleanup := setupMemberContainer(t)
	defer cleanup()

	client := membersdk.New(baseURL)

	health, err := client.Readyz(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)

	t.Logf("Readyz endpoint is healthy")
}

// TestRolesRequireAuth verifies the role registry is behind authentication.
func TestRolesRequireAuth(t *testing.T) {
	baseURL, cleanup := setupMemberContainer(t)
	defer cleanup()

	_, err := membersdk.New(baseURL).Roles(t.Context())
	require.Error(t, err, "anonymous role listing should be rejected")

	client := registerUser(t, baseURL, "user-admin", "admin@example.com", "Administrator")
	roles, err := client.Roles(t.Context())
	require.NoError(t, err)
	require.Equal(t, "owner", roles.OwnerRole)
	require.Equal(t, "member", roles.DefaultRole)
	require.NotEmpty(t, roles.Roles)
}
