package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"stack", "up"}, {"stack", "down"}, {"stack", "logs"}, {"check"}, {"migrate"}, {"token"},
		{"run", "api"}, {"run", "worker"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestTokenRequiresUser(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"token"})
	root.SilenceErrors = true
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "user" not set`)
}
