package command

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Pluto-lin/magma/internal/cli/output"
	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/core/service"
	"github.com/Pluto-lin/magma/internal/server/bootstrap"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// CheckReport is the result of magma-auth check.
type CheckReport struct {
	Username string `json:"username" yaml:"username"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Outcome  string `json:"outcome" yaml:"outcome"`
	Scope    string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Messages int    `json:"messages" yaml:"messages"`
	Folders  int    `json:"folders" yaml:"folders"`
	Contacts int    `json:"contacts" yaml:"contacts"`
	Elapsed  string `json:"elapsed" yaml:"elapsed"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty" table:"wide"`
}

// CheckCommand runs one authentication attempt against the configured
// backend, exactly as magmad would.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Verify a username and password",
		ArgsUsage: "USERNAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "protocol",
				Aliases: []string{"p"},
				Usage:   "Protocol to attribute the attempt to",
				Value:   domain.ProtocolGeneric.String(),
			},
			&cli.StringFlag{
				Name:  "scope",
				Usage: "Payload parts to load on success (messages,folders,contacts,all,none)",
				Value: "none",
			},
		},
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	username := c.Args().First()
	if username == "" {
		return cli.Exit("username is required", 1)
	}
	protocol, err := domain.ParseProtocol(c.String("protocol"))
	if err != nil {
		return err
	}
	scope, err := domain.ParseScope(c.String("scope"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	stack, err := bootstrap.Build(ctx, cfg, commandLogger(c))
	if err != nil {
		return cli.Exit(err.Error(), ExitError)
	}
	defer stack.Close(context.WithoutCancel(ctx))

	password, err := readPassword(c, "Password: ")
	if err != nil {
		return err
	}
	defer verifier.Wipe(password)

	start := time.Now()
	res, authErr := stack.Authenticator.Authenticate(ctx, &service.AuthenticateRequest{
		Username: []byte(username),
		Password: password,
		Protocol: protocol,
		Scope:    scope,
	})

	report := CheckReport{
		Username: username,
		Protocol: protocol.String(),
		Outcome:  res.Outcome.String(),
		Elapsed:  time.Since(start).Round(time.Millisecond).String(),
	}
	if res.Username != "" {
		report.Username = res.Username
	}
	if res.OK() {
		p := res.Handle.Payload
		report.Scope = res.Handle.Scope.String()
		report.Messages, report.Folders, report.Contacts = len(p.Messages), len(p.Folders), len(p.Contacts)
		if err := stack.Authenticator.Release(res.Username, protocol); err != nil {
			return err
		}
	} else if authErr != nil && c.Bool("verbose") {
		report.Error = authErr.Error()
	}

	if err := render(c, report, output.FormatTable); err != nil {
		return err
	}
	switch res.Outcome {
	case service.OutcomeFailed:
		return cli.Exit("", ExitFailed)
	case service.OutcomeError:
		return cli.Exit("", ExitError)
	}
	return nil
}
