package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pokemart", cmd.Use)
	assert.Contains(t, cmd.Long, "checkout")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"serve"},
		{"browse"},
		{"types"},
		{"checkout"},
		{"cart", "show"},
		{"cart", "add"},
		{"cart", "remove"},
		{"cart", "update"},
		{"cart", "clear"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Empty(t, configFlag.DefValue)
}

func TestBrowseCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	browseCmd, _, err := cmd.Find([]string{"browse"})
	require.NoError(t, err)

	for _, name := range []string{"search", "type", "min", "max", "sort"} {
		assert.NotNil(t, browseCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "id", browseCmd.Flags().Lookup("sort").DefValue)
}

func TestCheckoutCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	checkoutCmd, _, err := cmd.Find([]string{"checkout"})
	require.NoError(t, err)

	for _, name := range []string{"name", "email", "card", "expiry", "cvv"} {
		assert.NotNil(t, checkoutCmd.Flags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "types")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
