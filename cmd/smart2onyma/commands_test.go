package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"100", "200", "300"}, splitList([]string{"100, 200", "", "300"}))
	assert.Nil(t, splitList(nil))
}

func TestParseHistoryDate(t *testing.T) {
	want := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := parseHistoryDate("2023-03-01")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	got, err = parseHistoryDate("01.03.2023")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	got, err = parseHistoryDate("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseHistoryDate("March")
	assert.Error(t, err)
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"clientdata", "tariffs", "tariffs-srv-credit", "policy", "base-companies"}, names)

	cmd, _, err := root.Find([]string{"clientdata"})
	require.NoError(t, err)
	for _, flag := range []string{"append", "header", "accounts", "skip", "limit", "items", "tariffs-history-from", "import-connections", "on-error"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}
