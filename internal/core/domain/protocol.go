package domain

import (
	"fmt"
	"strings"
)

// Protocol identifies the access path a session came through. References
// to a cached user are counted per protocol.
type Protocol uint8

const (
	ProtocolGeneric Protocol = iota
	ProtocolIMAP
	ProtocolPOP
	ProtocolSMTP
	ProtocolWeb
)

var protocolNames = [...]string{
	ProtocolGeneric: "generic",
	ProtocolIMAP:    "imap",
	ProtocolPOP:     "pop",
	ProtocolSMTP:    "smtp",
	ProtocolWeb:     "web",
}

// Protocols returns every known protocol.
func Protocols() []Protocol {
	return []Protocol{ProtocolGeneric, ProtocolIMAP, ProtocolPOP, ProtocolSMTP, ProtocolWeb}
}

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool {
	return int(p) < len(protocolNames)
}

func (p Protocol) String() string {
	if !p.Valid() {
		return fmt.Sprintf("protocol(%d)", p)
	}
	return protocolNames[p]
}

// ParseProtocol parses a protocol name case-insensitively.
func ParseProtocol(s string) (Protocol, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range protocolNames {
		if name == s {
			return Protocol(i), nil
		}
	}
	return 0, ErrInvalidArgument.WithDetailsf("unknown protocol %q", s)
}

// Scope is a bitset of the data kinds loaded for a cached user.
type Scope uint8

const (
	ScopeMessages Scope = 1 << iota
	ScopeFolders
	ScopeContacts

	ScopeNone Scope = 0
	ScopeAll        = ScopeMessages | ScopeFolders | ScopeContacts
)

var scopeNames = []struct {
	bit  Scope
	name string
}{
	{ScopeMessages, "messages"},
	{ScopeFolders, "folders"},
	{ScopeContacts, "contacts"},
}

// Has reports whether every bit of want is set in s.
func (s Scope) Has(want Scope) bool {
	return s&want == want
}

// Missing returns the bits of want that s lacks.
func (s Scope) Missing(want Scope) Scope {
	return want &^ s
}

// Valid reports whether s only contains known bits.
func (s Scope) Valid() bool {
	return s&^ScopeAll == 0
}

func (s Scope) String() string {
	if s == ScopeNone {
		return "none"
	}
	var parts []string
	for _, n := range scopeNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := s &^ ScopeAll; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseScope parses "messages|folders", "messages,contacts", "all" or "none".
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none":
		return ScopeNone, nil
	case "all":
		return ScopeAll, nil
	}
	var out Scope
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(part)
		found := false
		for _, n := range scopeNames {
			if n.name == part {
				out |= n.bit
				found = true
				break
			}
		}
		if !found {
			return 0, ErrInvalidArgument.WithDetailsf("unknown scope %q", part)
		}
	}
	return out, nil
}
