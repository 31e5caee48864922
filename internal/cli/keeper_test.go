package cli

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeeperCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	keeperCmd, _, err := cmd.Find([]string{"keeper"})
	require.NoError(t, err)

	for _, name := range []string{"cron", "caller", "metrics-addr"} {
		flag := keeperCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "keeper should have --%s", name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestKeeperCommand_RequiresGenesis(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init")

	_, err := env.run("keeper", "--metrics-addr", "off")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "keeper.genesis must be configured")
}

func TestKeeperCommand_RunsUntilCancelled(t *testing.T) {
	env := newCLIEnv(t)
	genesis := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	require.NoError(t, os.WriteFile(env.config, []byte(testPoolConfig+"keeper:\n  genesis: "+genesis+"\n"), 0644))
	env.stakedPool()

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.config, "--db", env.db, "keeper", "--cron", "@every 1s", "--metrics-addr", "off"})

	err := cmd.ExecuteContext(ctx)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Keeper started at round 0")

	out := env.mustRun("--format", "json", "log", "--ops")
	var ops []ReceiptView
	decodeData(t, out, &ops)
	assert.Len(t, ops, 5, "an idle keeper journals nothing")
}

func TestKeeperCommand_BadCron(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(env.config, []byte(testPoolConfig+"keeper:\n  genesis: 2030-01-01T00:00:00Z\n"), 0644))
	env.mustRun("init")

	_, err := env.run("keeper", "--cron", "not a cron", "--metrics-addr", "off")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start keeper")
}
