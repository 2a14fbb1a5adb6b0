package command

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/Pluto-lin/magma/internal/cli/output"
	"github.com/Pluto-lin/magma/internal/infra/buildinfo"
	"github.com/Pluto-lin/magma/internal/server/config"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// Exit codes of magma-auth.
const (
	ExitFailed = 2 // credentials rejected
	ExitError  = 3 // backend failure
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "magma-auth",
		Usage:   "Check and inspect magma credentials",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CheckCommand(),
			HashCommand(),
			UsersCommand(),
			CacheCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the magmad configuration file",
			EnvVars: []string{"MAGMA_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "magmad operations address",
			EnvVars: []string{"MAGMA_SERVER"},
			Value:   config.DefaultServerAddr,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log to stderr and show failure details",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Server  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		Server:  c.String("server"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// loadConfig loads the configuration named by --config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, _, err := config.Load(c.String("config"), nil)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// commandLogger logs to stderr in verbose mode and discards otherwise.
func commandLogger(c *cli.Context) logger.Logger {
	if !c.Bool("verbose") {
		return logger.Discard()
	}
	return logger.New(logger.Config{Level: "debug", Format: "text", Output: c.App.ErrWriter})
}

// render renders data in the selected format. fallback applies when
// --output was not given explicitly.
func render(c *cli.Context, data any, fallback output.Format) error {
	format := fallback
	if c.IsSet("output") || fallback == "" {
		f, err := output.ParseFormat(c.String("output"))
		if err != nil {
			return err
		}
		format = f
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}

// readPassword reads a password without echo from a terminal, or one
// line from a non-terminal reader. The trailing newline is dropped.
func readPassword(c *cli.Context, prompt string) ([]byte, error) {
	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.App.ErrWriter, prompt)
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.App.ErrWriter)
		return pw, err
	}
	line, err := bufio.NewReader(in).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}
