package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "reindex", "token"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestReindexRejectsUnknownKind(t *testing.T) {
	err := reindex(reindexCmd, "agency")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile kind")
}

func TestRootFlagsBindLogSettings(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	require.NotNil(t, flags.Lookup("debug"))
	require.NotNil(t, flags.Lookup("json"))
	require.NotNil(t, flags.Lookup("config"))
}
