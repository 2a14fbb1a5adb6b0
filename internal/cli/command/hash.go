package command

import (
	"encoding/base64"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Pluto-lin/magma/internal/cli/output"
	"github.com/Pluto-lin/magma/internal/core/service"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// HashReport is a verification record in printable form.
type HashReport struct {
	Username  string          `json:"username" yaml:"username"`
	Salt      string          `json:"salt" yaml:"salt"`
	Hash      string          `json:"hash" yaml:"hash"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	Argon2    verifier.Params `json:"argon2" yaml:"argon2" table:"wide"`
}

// HashCommand prints the verification record of a password under the
// configured pepper and Argon2 parameters. Nothing is stored.
func HashCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "Compute the verification record of a password",
		ArgsUsage: "USERNAME",
		Action:    hashAction,
	}
}

func hashAction(c *cli.Context) error {
	username := c.Args().First()
	if username == "" {
		return cli.Exit("username is required", 1)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pepper, err := cfg.Auth.LoadPepper()
	if err != nil {
		return err
	}
	hasher, err := verifier.New(pepper, cfg.Auth.Argon2)
	verifier.Wipe(pepper)
	if err != nil {
		return err
	}

	password, err := readPassword(c, "Password: ")
	if err != nil {
		return err
	}
	defer verifier.Wipe(password)

	rec, err := service.NewCredentialBuilder(nil, hasher, cfg.BuilderConfig()).HashRecord([]byte(username), password)
	if err != nil {
		return err
	}
	return render(c, HashReport{
		Username:  rec.Username,
		Salt:      base64.StdEncoding.EncodeToString(rec.Salt),
		Hash:      base64.StdEncoding.EncodeToString(rec.Hash),
		CreatedAt: rec.CreatedAt,
		Argon2:    hasher.Params(),
	}, output.FormatTable)
}
