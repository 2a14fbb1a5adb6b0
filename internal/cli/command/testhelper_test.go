package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/Pluto-lin/magma/internal/server/bootstrap"
	"github.com/Pluto-lin/magma/internal/server/config"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

const testPepper = "cli-test-pepper"

// runResult captures one invocation of the CLI.
type runResult struct {
	stdout string
	stderr string
	code   int
	err    error
}

// run executes magma-auth with args, feeding stdin to password prompts.
func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	res := runResult{}

	app := App()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(_ *cli.Context, err error) {
		if ec, ok := err.(cli.ExitCoder); ok {
			res.code = ec.ExitCode()
		}
	}

	res.err = app.Run(append([]string{"magma-auth"}, args...))
	res.stdout, res.stderr = stdout.String(), stderr.String()
	return res
}

// writeConfig writes a config backed by a fresh SQLite database.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "magmad.yaml")
	body := fmt.Sprintf(`auth:
  pepper: %s
  argon2:
    time: 1
    memory: 64
    threads: 1
    key_len: 32
cache:
  shards: 4
storage:
  backend: sql
  sql:
    driver: sqlite
    dsn: %s
`, testPepper, filepath.Join(dir, "magma.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// seedUser stores a credential through the same stack the CLI builds.
func seedUser(t *testing.T, cfgPath, username, password string) {
	t.Helper()
	ctx := context.Background()
	cfg, _, err := config.Load(cfgPath, nil)
	require.NoError(t, err)

	stack, err := bootstrap.Build(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer stack.Close(ctx)

	rec, err := stack.Builder.HashRecord([]byte(username), []byte(password))
	require.NoError(t, err)
	require.NoError(t, stack.Credentials.PutCredential(ctx, rec))
}
