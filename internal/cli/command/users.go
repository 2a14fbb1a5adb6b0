package command

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/Pluto-lin/magma/internal/cli/output"
	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/server/bootstrap"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// ImportReport is one line of `users import` output.
type ImportReport struct {
	Username  string    `json:"username" yaml:"username"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// UsersCommand lists, imports and deletes stored verification records.
// Records come from `magma-auth hash`; the badger backend is locked while
// magmad runs, so stop it before importing into one.
func UsersCommand() *cli.Command {
	return &cli.Command{
		Name:   "users",
		Usage:  "Manage stored verification records",
		Action: usersListAction,
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List users with stored credentials",
				Action: usersListAction,
			},
			{
				Name:      "import",
				Usage:     "Store records printed by `hash` (JSON or YAML, one or many)",
				ArgsUsage: "[FILE|-]",
				Action:    usersImportAction,
			},
			{
				Name:      "delete",
				Usage:     "Remove the stored record of a user",
				ArgsUsage: "USERNAME",
				Action:    usersDeleteAction,
			},
		},
	}
}

// withStack builds the configured stack for the duration of fn.
func withStack(c *cli.Context, fn func(ctx context.Context, stack *bootstrap.Stack) error) error {
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
	return fn(ctx, stack)
}

func usersListAction(c *cli.Context) error {
	return withStack(c, func(ctx context.Context, stack *bootstrap.Stack) error {
		users, err := stack.Credentials.List(ctx)
		if err != nil {
			return cli.Exit(err.Error(), ExitError)
		}
		if users == nil {
			users = []string{}
		}
		return render(c, users, output.FormatTable)
	})
}

func usersImportAction(c *cli.Context) error {
	in := c.App.Reader
	if name := c.Args().First(); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer f.Close()
		in = f
	}
	reports, err := decodeHashReports(in)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(reports) == 0 {
		return cli.Exit("no records to import", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return withStack(c, func(ctx context.Context, stack *bootstrap.Stack) error {
		recs := make([]*domain.StoredCredential, 0, len(reports))
		for i, r := range reports {
			rec, err := r.record(stack, cfg.Auth.Argon2)
			if err != nil {
				return cli.Exit(fmt.Sprintf("record %d: %v", i+1, err), 1)
			}
			recs = append(recs, rec)
		}

		out := make([]ImportReport, 0, len(recs))
		for _, rec := range recs {
			if err := stack.Credentials.PutCredential(ctx, rec); err != nil {
				return cli.Exit(err.Error(), ExitError)
			}
			out = append(out, ImportReport{Username: rec.Username, CreatedAt: rec.CreatedAt})
		}
		return render(c, out, output.FormatTable)
	})
}

func usersDeleteAction(c *cli.Context) error {
	username := c.Args().First()
	if username == "" {
		return cli.Exit("username is required", 1)
	}
	return withStack(c, func(ctx context.Context, stack *bootstrap.Stack) error {
		canonical, err := stack.Builder.Canonicalize([]byte(username))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		err = stack.Credentials.DeleteCredential(ctx, canonical)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return cli.Exit(fmt.Sprintf("no record for %q", canonical), 1)
		case err != nil:
			return cli.Exit(err.Error(), ExitError)
		}
		fmt.Fprintf(c.App.Writer, "deleted %s\n", canonical)
		return nil
	})
}

// importRecord is a HashReport as read back from JSON or YAML.
type importRecord struct {
	Username  string           `yaml:"username"`
	Salt      string           `yaml:"salt"`
	Hash      string           `yaml:"hash"`
	CreatedAt string           `yaml:"created_at"`
	Argon2    *verifier.Params `yaml:"argon2"`
}

// decodeHashReports reads every document of r. A document is a single
// record or a list of them. JSON is read as YAML.
func decodeHashReports(r io.Reader) ([]importRecord, error) {
	dec := yaml.NewDecoder(r)
	var out []importRecord
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse records: %w", err)
		}
		if len(doc.Content) == 0 {
			continue
		}
		if doc.Content[0].Kind == yaml.SequenceNode {
			var list []importRecord
			if err := doc.Decode(&list); err != nil {
				return nil, fmt.Errorf("parse records: %w", err)
			}
			out = append(out, list...)
			continue
		}
		var one importRecord
		if err := doc.Decode(&one); err != nil {
			return nil, fmt.Errorf("parse records: %w", err)
		}
		out = append(out, one)
	}
}

// record validates r against the running configuration. Records hashed
// under other Argon2 parameters could never verify.
func (r importRecord) record(stack *bootstrap.Stack, params verifier.Params) (*domain.StoredCredential, error) {
	username, err := stack.Builder.Canonicalize([]byte(r.Username))
	if err != nil {
		return nil, err
	}
	if r.Argon2 != nil && *r.Argon2 != params {
		return nil, fmt.Errorf("%s: hashed with argon2 %+v, configured %+v", username, *r.Argon2, params)
	}
	salt, err := base64.StdEncoding.DecodeString(r.Salt)
	if err != nil {
		return nil, fmt.Errorf("%s: salt: %w", username, err)
	}
	hash, err := base64.StdEncoding.DecodeString(r.Hash)
	if err != nil {
		return nil, fmt.Errorf("%s: hash: %w", username, err)
	}
	if len(hash) != verifier.HashLen {
		return nil, fmt.Errorf("%s: hash is %d bytes, want %d", username, len(hash), verifier.HashLen)
	}
	created := time.Now().UTC()
	if r.CreatedAt != "" {
		if created, err = time.Parse(time.RFC3339Nano, r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: created_at: %w", username, err)
		}
	}
	rec := &domain.StoredCredential{Username: username, Salt: salt, Hash: hash, CreatedAt: created}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
