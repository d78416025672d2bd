package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clubsync/go-club-client/users"
)

func TestRoleValid(t *testing.T) {
	for _, role := range users.Roles {
		require.True(t, role.Valid())
	}
	require.False(t, users.RoleType("referee").Valid())
	require.False(t, users.RoleType("").Valid())
}

func TestAdminSubsumesCoach(t *testing.T) {
	admin := users.User{Role: users.RoleAdmin}
	require.True(t, admin.IsAdmin())
	require.True(t, admin.IsCoach())

	coach := users.User{Role: users.RoleCoach}
	require.False(t, coach.IsAdmin())
	require.True(t, coach.IsCoach())

	player := users.User{Role: users.RolePlayer}
	require.False(t, player.IsCoach())
}

func TestFullName(t *testing.T) {
	user := users.User{FirstName: "Max", LastName: "Mustermann"}
	require.Equal(t, "Max Mustermann", user.FullName())

	firstOnly := users.User{FirstName: "Max"}
	require.Equal(t, "Max", firstOnly.FullName())

	var empty users.User
	require.Empty(t, empty.FullName())
}
