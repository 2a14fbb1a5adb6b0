package domain

import "time"

// Message describes one stored message of a user.
type Message struct {
	Key    string `json:"key"`
	Folder string `json:"folder"`
	Size   int64  `json:"size"`
	Flags  string `json:"flags"`
	Seen   bool   `json:"seen"`
}

// Folder summarizes one mail folder.
type Folder struct {
	Name     string `json:"name"`
	Messages int    `json:"messages"`
	Unseen   int    `json:"unseen"`
}

// Contact is one address book entry.
type Contact struct {
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Updated time.Time `json:"updated"`
}

// Payload is the per-user metadata held by the user object cache. Scope
// records which parts have been loaded; parts outside Scope are empty.
type Payload struct {
	Scope    Scope     `json:"scope"`
	Messages []Message `json:"messages,omitempty"`
	Folders  []Folder  `json:"folders,omitempty"`
	Contacts []Contact `json:"contacts,omitempty"`
}

// Merge copies the parts of other that p has not loaded yet. Parts already
// present in p are left untouched.
func (p *Payload) Merge(other *Payload) {
	if other == nil {
		return
	}
	add := p.Scope.Missing(other.Scope)
	if add&ScopeMessages != 0 {
		p.Messages = other.Messages
	}
	if add&ScopeFolders != 0 {
		p.Folders = other.Folders
	}
	if add&ScopeContacts != 0 {
		p.Contacts = other.Contacts
	}
	p.Scope |= add
}

// Clone returns a copy whose slices do not alias p.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return &Payload{}
	}
	return &Payload{
		Scope:    p.Scope,
		Messages: append([]Message(nil), p.Messages...),
		Folders:  append([]Folder(nil), p.Folders...),
		Contacts: append([]Contact(nil), p.Contacts...),
	}
}
