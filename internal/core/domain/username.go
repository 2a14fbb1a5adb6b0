package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxUsernameLength is the longest accepted username in bytes, before and
// after canonicalization.
const MaxUsernameLength = 254

// DefaultHomeDomain is the domain whose addresses map to bare local parts.
const DefaultHomeDomain = "lavabit.com"

// UsernamePolicy turns raw usernames into canonical identities.
//
// Canonicalization trims, NFC-normalizes and lower-cases the input, strips
// a "+label" suffix from the local part, and drops the domain when it is a
// home domain. Addresses at other domains keep their (IDNA ASCII) domain
// and therefore never collide with home accounts.
type UsernamePolicy struct {
	homes map[string]struct{}
}

// NewUsernamePolicy returns a policy treating homeDomains as local.
// Invalid entries are ignored.
func NewUsernamePolicy(homeDomains ...string) *UsernamePolicy {
	p := &UsernamePolicy{
		homes: make(map[string]struct{}, len(homeDomains)),
	}
	for _, d := range homeDomains {
		if ascii, err := idna.Lookup.ToASCII(strings.TrimSpace(d)); err == nil && ascii != "" {
			p.homes[ascii] = struct{}{}
		}
	}
	return p
}

// DefaultUsernamePolicy returns a policy with DefaultHomeDomain.
func DefaultUsernamePolicy() *UsernamePolicy {
	return NewUsernamePolicy(DefaultHomeDomain)
}

// IsHomeDomain reports whether domain is one of the policy's home domains.
func (p *UsernamePolicy) IsHomeDomain(domain string) bool {
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return false
	}
	_, ok := p.homes[ascii]
	return ok
}

// Canonicalize returns the canonical identity for raw or ErrInvalidUsername.
func (p *UsernamePolicy) Canonicalize(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrInvalidUsername.WithDetails("empty")
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUsername.WithDetails("not valid utf-8")
	}

	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "", ErrInvalidUsername.WithDetails("empty")
	}
	if len(s) > MaxUsernameLength {
		return "", ErrInvalidUsername.WithDetailsf("longer than %d bytes", MaxUsernameLength)
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return "", ErrInvalidUsername.WithDetails("contains whitespace or control characters")
		}
	}

	// cases.Caser is stateful, so one per call.
	s = cases.Lower(language.Und).String(norm.NFC.String(s))

	local, domain, hasDomain := strings.Cut(s, "@")
	if hasDomain && strings.Contains(domain, "@") {
		return "", ErrInvalidUsername.WithDetails("more than one @")
	}

	if i := strings.IndexByte(local, '+'); i >= 0 {
		local = local[:i]
	}
	if err := validateLocalPart(local); err != nil {
		return "", err
	}

	if !hasDomain {
		return local, nil
	}
	if domain == "" {
		return "", ErrInvalidUsername.WithDetails("empty domain")
	}
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil || ascii == "" {
		return "", ErrInvalidUsername.WithDetails("invalid domain").WithCause(err)
	}
	if _, ok := p.homes[ascii]; ok {
		return local, nil
	}

	id := local + "@" + ascii
	if len(id) > MaxUsernameLength {
		return "", ErrInvalidUsername.WithDetailsf("longer than %d bytes", MaxUsernameLength)
	}
	return id, nil
}

func validateLocalPart(local string) error {
	if local == "" {
		return ErrInvalidUsername.WithDetails("no local part")
	}
	// Lowercasing can grow the byte count.
	if len(local) > MaxUsernameLength {
		return ErrInvalidUsername.WithDetailsf("longer than %d bytes", MaxUsernameLength)
	}
	if local[0] == '.' || local[len(local)-1] == '.' || strings.Contains(local, "..") {
		return ErrInvalidUsername.WithDetails("misplaced dot in local part")
	}
	for _, r := range local {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '.', r == '_', r == '-':
		default:
			return ErrInvalidUsername.WithDetailsf("character %q not allowed", r)
		}
	}
	return nil
}
