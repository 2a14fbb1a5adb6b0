package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Pluto-lin/magma/internal/cli/output"
	"github.com/Pluto-lin/magma/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return render(c, config.Sanitize(cfg), output.FormatYAML)
}

func configValidate(c *cli.Context) error {
	if _, err := loadConfig(c); err != nil {
		return err
	}
	source := c.String("config")
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(c.App.Writer, "configuration OK (%s)\n", source)
	return nil
}
