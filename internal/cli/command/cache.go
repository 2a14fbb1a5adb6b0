package command

import (
	"github.com/urfave/cli/v2"

	"github.com/Pluto-lin/magma/internal/cli/connection"
	"github.com/Pluto-lin/magma/internal/cli/output"
)

// CacheCommand returns the cache subcommand group. It talks to the
// operations API of a running magmad.
func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the user cache of a running magmad",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show the cache size, or one cached user",
				ArgsUsage: "[USERNAME]",
				Action:    cacheShow,
			},
			{
				Name:      "evict",
				Usage:     "Evict a user that holds no references",
				ArgsUsage: "USERNAME",
				Action:    cacheEvict,
			},
			{
				Name:  "sweep",
				Usage: "Evict every user idle for longer than --idle",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "idle",
						Usage: "Idle threshold (default: the server's cache.idle_ttl)",
						Value: -1,
					},
				},
				Action: cacheSweep,
			},
		},
	}
}

func client(c *cli.Context) *connection.HTTPClient {
	return connection.NewHTTPClient(c.String("server"))
}

func cacheShow(c *cli.Context) error {
	if username := c.Args().First(); username != "" {
		entry, err := client(c).CacheEntry(c.Context, username)
		if err != nil {
			return err
		}
		return render(c, entry, output.FormatTable)
	}
	sum, err := client(c).CacheSummary(c.Context)
	if err != nil {
		return err
	}
	return render(c, sum, output.FormatTable)
}

func cacheEvict(c *cli.Context) error {
	username := c.Args().First()
	if username == "" {
		return cli.Exit("username is required", 1)
	}
	res, err := client(c).Evict(c.Context, username)
	if err != nil {
		return err
	}
	return render(c, res, output.FormatTable)
}

func cacheSweep(c *cli.Context) error {
	res, err := client(c).Sweep(c.Context, c.Duration("idle"))
	if err != nil {
		return err
	}
	return render(c, res, output.FormatTable)
}
