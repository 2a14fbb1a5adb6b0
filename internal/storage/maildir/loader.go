// Package maildir loads message and folder metadata from Maildir++ trees.
//
// Each user owns <root>/<username>. The top directory is the INBOX and
// subfolders are dot-prefixed siblings (".Sent", ".Archive.2024").
package maildir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/emersion/go-maildir"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// Inbox is the name of the top-level folder.
const Inbox = "INBOX"

// ErrPathTraversal is returned for usernames that would escape the root.
var ErrPathTraversal = errors.New("maildir: username escapes root")

// Loader implements service.Loader for ScopeMessages and ScopeFolders.
type Loader struct {
	root string
	log  logger.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewLoader reads mailboxes below root.
func NewLoader(root string, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Discard()
	}
	return &Loader{
		root:   filepath.Clean(root),
		log:    log.With("component", "maildir"),
		active: make(map[string]struct{}),
	}
}

func (l *Loader) userPath(username string) (string, error) {
	if username == "" || !filepath.IsLocal(username) || strings.ContainsRune(username, filepath.Separator) {
		return "", ErrPathTraversal
	}
	return filepath.Join(l.root, username), nil
}

// Load returns the messages and folder summaries of username. A user
// without a mailbox gets an empty payload.
func (l *Loader) Load(ctx context.Context, username string, scope domain.Scope) (*domain.Payload, error) {
	p := &domain.Payload{Scope: scope & (domain.ScopeMessages | domain.ScopeFolders)}
	if p.Scope == domain.ScopeNone {
		return p, nil
	}
	path, err := l.userPath(username)
	if err != nil {
		return nil, err
	}

	folders, err := listFolders(path)
	if err != nil {
		return nil, err
	}

	for _, f := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgs, err := readFolder(f.dir, f.name)
		if err != nil {
			return nil, fmt.Errorf("maildir: read %s of %s: %w", f.name, username, err)
		}
		if p.Scope.Has(domain.ScopeMessages) {
			p.Messages = append(p.Messages, msgs...)
		}
		if p.Scope.Has(domain.ScopeFolders) {
			sum := domain.Folder{Name: f.name, Messages: len(msgs)}
			for _, m := range msgs {
				if !m.Seen {
					sum.Unseen++
				}
			}
			p.Folders = append(p.Folders, sum)
		}
	}

	l.mu.Lock()
	l.active[username] = struct{}{}
	l.mu.Unlock()

	l.log.Debug("mailbox loaded",
		"user", username,
		"folders", len(folders),
		"messages", len(p.Messages))
	return p, nil
}

// Release forgets username.
func (l *Loader) Release(_ context.Context, username string) error {
	l.mu.Lock()
	delete(l.active, username)
	l.mu.Unlock()
	return nil
}

// Active returns the number of users loaded and not yet released.
func (l *Loader) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

type folderDir struct {
	name string
	dir  maildir.Dir
}

func isMaildir(path string) bool {
	fi, err := os.Stat(filepath.Join(path, "cur"))
	return err == nil && fi.IsDir()
}

func listFolders(path string) ([]folderDir, error) {
	if !isMaildir(path) {
		return nil, nil
	}
	folders := []folderDir{{name: Inbox, dir: maildir.Dir(path)}}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("maildir: list folders: %w", err)
	}
	var subs []folderDir
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || len(name) < 2 || name[0] != '.' || name == ".." {
			continue
		}
		sub := filepath.Join(path, name)
		if !isMaildir(sub) {
			continue
		}
		subs = append(subs, folderDir{name: name[1:], dir: maildir.Dir(sub)})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].name < subs[j].name })
	return append(folders, subs...), nil
}

// readFolder moves new mail to cur/ and returns every message.
func readFolder(dir maildir.Dir, folder string) ([]domain.Message, error) {
	if _, err := dir.Unseen(); err != nil {
		return nil, err
	}
	all, err := dir.Messages()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Message, 0, len(all))
	for _, msg := range all {
		fi, err := os.Stat(msg.Filename())
		if err != nil {
			// Removed by a concurrent expunge.
			continue
		}
		flags := msg.Flags()
		m := domain.Message{
			Key:    msg.Key(),
			Folder: folder,
			Size:   fi.Size(),
			Flags:  flagString(flags),
		}
		for _, f := range flags {
			if f == maildir.FlagSeen {
				m.Seen = true
			}
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func flagString(flags []maildir.Flag) string {
	var b strings.Builder
	for _, f := range flags {
		b.WriteRune(rune(f))
	}
	return b.String()
}
