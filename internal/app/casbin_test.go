package app

import (
	"testing"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnforcer(t *testing.T) *casbin.Enforcer {
	t.Helper()

	m, err := model.NewModelFromString(casbinModel)
	require.NoError(t, err)
	e, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	return e
}

func TestSeedCasbin_EmptyStoreTakesConfig(t *testing.T) {
	// Arrange
	e := newTestEnforcer(t)
	policies := splitRules([]string{"client, mailing, create", "admin, *, *", "broken, rule"}, 3)
	roles := splitRules([]string{"operator, client"}, 2)

	// Act
	seeded, err := seedCasbin(e, policies, roles)

	// Assert
	require.NoError(t, err)
	assert.True(t, seeded)

	ok, err := e.Enforce("operator", "mailing", "create")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Enforce("operator", "mailing", "delete")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Enforce("admin", "template", "create")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeedCasbin_StoredRulesWin(t *testing.T) {
	// Arrange
	e := newTestEnforcer(t)
	_, err := e.AddPolicy("client", "mailing", "read")
	require.NoError(t, err)

	// Act
	seeded, err := seedCasbin(e, [][]string{{"client", "mailing", "delete"}}, nil)

	// Assert
	require.NoError(t, err)
	assert.False(t, seeded)

	ok, err := e.Enforce("client", "mailing", "delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeedCasbin_NothingConfigured(t *testing.T) {
	e := newTestEnforcer(t)

	seeded, err := seedCasbin(e, nil, nil)

	require.NoError(t, err)
	assert.False(t, seeded)
}
