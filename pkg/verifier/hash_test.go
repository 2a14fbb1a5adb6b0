package verifier

import (
	"bytes"
	"testing"
)

// testParams keeps Argon2id cheap in tests.
var testParams = Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32}

func newTestHasher(t *testing.T, pepper string) *Hasher {
	t.Helper()
	h, err := New([]byte(pepper), testParams)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		pepper  []byte
		params  Params
		wantErr bool
	}{
		{"default params", []byte("pepper"), DefaultParams(), false},
		{"empty pepper", nil, testParams, false},
		{"max pepper", bytes.Repeat([]byte{1}, MaxPepperLen), testParams, false},
		{"pepper too long", bytes.Repeat([]byte{1}, MaxPepperLen+1), testParams, true},
		{"zero time", nil, Params{Time: 0, Memory: 64, Threads: 1, KeyLen: 32}, true},
		{"zero threads", nil, Params{Time: 1, Memory: 64, Threads: 0, KeyLen: 32}, true},
		{"memory too small", nil, Params{Time: 1, Memory: 4, Threads: 1, KeyLen: 32}, true},
		{"short key", nil, Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pepper, tt.params)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	h := newTestHasher(t, "pepper")
	salt := []byte("0123456789abcdef")

	a := h.Derive([]byte("test"), salt)
	b := h.Derive([]byte("test"), salt)
	if !Equal(a, b) {
		t.Error("Derive should be deterministic")
	}
	if len(a) != HashLen {
		t.Errorf("len(Derive()) = %d, want %d", len(a), HashLen)
	}
}

func TestDerive_InputsMatter(t *testing.T) {
	h := newTestHasher(t, "pepper")
	other := newTestHasher(t, "other-pepper")
	salt := []byte("0123456789abcdef")
	base := h.Derive([]byte("test"), salt)

	if Equal(base, h.Derive([]byte("password"), salt)) {
		t.Error("different password should change hash")
	}
	if Equal(base, h.Derive([]byte("test"), []byte("fedcba9876543210"))) {
		t.Error("different salt should change hash")
	}
	if Equal(base, other.Derive([]byte("test"), salt)) {
		t.Error("different pepper should change hash")
	}
}

func TestDerive_EmptyAndBinary(t *testing.T) {
	h := newTestHasher(t, "")
	if got := h.Derive(nil, nil); len(got) != HashLen {
		t.Errorf("Derive(nil, nil) length = %d", len(got))
	}
	bin := []byte{0x00, 0xff, 0x80, 0x00}
	if got := h.Derive(bin, bin); len(got) != HashLen {
		t.Errorf("Derive(binary) length = %d", len(got))
	}
}

func TestDecoySalt(t *testing.T) {
	h := newTestHasher(t, "pepper")
	a := h.DecoySalt("magma")
	if len(a) != SaltLen {
		t.Fatalf("len(DecoySalt()) = %d, want %d", len(a), SaltLen)
	}
	if !bytes.Equal(a, h.DecoySalt("magma")) {
		t.Error("DecoySalt should be stable per username")
	}
	if bytes.Equal(a, h.DecoySalt("other")) {
		t.Error("DecoySalt should differ between usernames")
	}
}

func TestEqual(t *testing.T) {
	if !Equal([]byte("abc"), []byte("abc")) {
		t.Error("equal slices should compare equal")
	}
	if Equal([]byte("abc"), []byte("abd")) {
		t.Error("different slices should not compare equal")
	}
	if Equal([]byte("abc"), []byte("ab")) {
		t.Error("different lengths should not compare equal")
	}
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	Wipe(b)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d = %d after Wipe", i, c)
		}
	}
	Wipe(nil)
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}
	b, _ := NewSalt()
	if len(a) != SaltLen {
		t.Errorf("len(NewSalt()) = %d, want %d", len(a), SaltLen)
	}
	if bytes.Equal(a, b) {
		t.Error("two salts should differ")
	}
}
