package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"research", "checkpoint", "models", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "market-research", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestResearchCommand_Flags(t *testing.T) {
	for _, name := range []string{"job", "landscape", "description", "url", "resume", "notion-features"} {
		assert.NotNil(t, researchCmd.Flags().Lookup(name), "research command should have --%s flag", name)
	}

	phases := researchCmd.Flags().Lookup("phases")
	require.NotNil(t, phases)
	assert.Equal(t, "features,products,crawl", phases.DefValue)

	resume := researchCmd.Flags().Lookup("resume")
	assert.Equal(t, "false", resume.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCheckpointCommand_RequiresLandscape(t *testing.T) {
	assert.Error(t, checkpointCmd.Args(checkpointCmd, nil))
	assert.NoError(t, checkpointCmd.Args(checkpointCmd, []string{"Secure File Transfer"}))
}
