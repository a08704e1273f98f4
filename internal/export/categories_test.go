package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategories(t *testing.T) {
	cats, err := ParseCategories([]string{"accounts", " balances", ""})
	require.NoError(t, err)

	assert.True(t, cats.Has(CategoryAccounts))
	assert.True(t, cats.Has(CategoryBalances))
	assert.False(t, cats.Has(CategoryConnections))
	assert.Equal(t, "accounts,balances", cats.String())
}

func TestParseCategories_EmptySelectsAll(t *testing.T) {
	cats, err := ParseCategories(nil)
	require.NoError(t, err)

	for _, c := range AllCategories {
		assert.True(t, cats.Has(c), c)
	}
}

func TestParseCategories_Unknown(t *testing.T) {
	_, err := ParseCategories([]string{"accounts", "tariffs"})
	assert.Error(t, err)
}

func TestParseFailMode(t *testing.T) {
	mode, err := ParseFailMode("")
	require.NoError(t, err)
	assert.Equal(t, FailStop, mode)

	mode, err = ParseFailMode("continue")
	require.NoError(t, err)
	assert.Equal(t, FailContinue, mode)

	_, err = ParseFailMode("retry")
	assert.Error(t, err)
}
