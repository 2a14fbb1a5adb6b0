package domain

import (
	"errors"
	"testing"
)

func TestProtocol(t *testing.T) {
	for _, p := range Protocols() {
		got, err := ParseProtocol(p.String())
		if err != nil || got != p {
			t.Errorf("ParseProtocol(%q) = %v, %v", p.String(), got, err)
		}
	}
	if got, _ := ParseProtocol(" IMAP "); got != ProtocolIMAP {
		t.Errorf("ParseProtocol should ignore case and space, got %v", got)
	}
	if _, err := ParseProtocol("gopher"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseProtocol(gopher) error = %v", err)
	}
	if Protocol(99).Valid() || Protocol(99).String() != "protocol(99)" {
		t.Error("unknown protocol should be invalid")
	}
}

func TestScope(t *testing.T) {
	s := ScopeMessages | ScopeFolders

	if !s.Has(ScopeMessages) || s.Has(ScopeContacts) || s.Has(ScopeAll) {
		t.Error("Has() mismatch")
	}
	if got := s.Missing(ScopeAll); got != ScopeContacts {
		t.Errorf("Missing() = %v, want contacts", got)
	}
	if got := ScopeAll.Missing(ScopeMessages); got != ScopeNone {
		t.Errorf("Missing() = %v, want none", got)
	}
	if s.String() != "messages|folders" || ScopeNone.String() != "none" {
		t.Errorf("String() = %q / %q", s.String(), ScopeNone.String())
	}
	if Scope(0x80).Valid() {
		t.Error("unknown bit should be invalid")
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"", ScopeNone, false},
		{"all", ScopeAll, false},
		{"messages", ScopeMessages, false},
		{"messages|folders", ScopeMessages | ScopeFolders, false},
		{"Contacts, messages", ScopeContacts | ScopeMessages, false},
		{"calendar", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScope(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScope(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseScope(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPayload_Merge(t *testing.T) {
	p := &Payload{
		Scope:    ScopeMessages,
		Messages: []Message{{Key: "1"}},
	}
	p.Merge(&Payload{
		Scope:    ScopeMessages | ScopeFolders,
		Messages: []Message{{Key: "other"}},
		Folders:  []Folder{{Name: "Inbox"}},
	})

	if p.Scope != ScopeMessages|ScopeFolders {
		t.Errorf("Scope = %v", p.Scope)
	}
	if p.Messages[0].Key != "1" {
		t.Error("Merge must not replace loaded parts")
	}
	if len(p.Folders) != 1 {
		t.Error("Merge should add missing parts")
	}
	p.Merge(nil)

	c := p.Clone()
	c.Messages[0].Key = "changed"
	if p.Messages[0].Key != "1" {
		t.Error("Clone should not alias")
	}
}
