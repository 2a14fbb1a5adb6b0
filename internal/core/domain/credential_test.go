package domain

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestCredential_Lifecycle(t *testing.T) {
	c := NewCredential("magma")
	if c.AuthReady() {
		t.Fatal("new credential must not be auth-ready")
	}

	password := []byte("test")
	salt := []byte("salt")
	c.SetSecret(password, salt)
	password[0] = 'X'
	if !bytes.Equal(c.Password(), []byte("test")) {
		t.Error("SetSecret should copy the password")
	}
	if !bytes.Equal(c.Salt(), []byte("salt")) {
		t.Error("SetSecret should copy the salt")
	}

	c.SetHash([]byte{1, 2, 3})
	if !c.AuthReady() {
		t.Error("credential with hash should be auth-ready")
	}

	pw, h := c.Password(), c.Hash()
	c.Wipe()
	if c.AuthReady() {
		t.Error("wiped credential must not be auth-ready")
	}
	for _, b := range append(pw, h...) {
		if b != 0 {
			t.Fatal("Wipe should zero secret buffers in place")
		}
	}
	c.Wipe()
}

func TestCredential_NilSalt(t *testing.T) {
	c := NewCredential("magma")
	c.SetSecret([]byte("test"), nil)
	if c.Salt() != nil {
		t.Error("nil salt should stay nil")
	}
	c.SetSecret(nil, []byte{})
	if c.Salt() == nil || len(c.Password()) != 0 {
		t.Error("empty salt should be kept and password replaced")
	}
}

func TestCredential_NeverPrintsSecrets(t *testing.T) {
	c := NewCredential("magma")
	c.SetSecret([]byte("hunter2"), []byte("pepper-salt"))
	c.SetHash([]byte("hashvalue"))

	for _, s := range []string{c.String(), fmt.Sprintf("%v", c), c.LogValue().String()} {
		if strings.Contains(s, "hunter2") || strings.Contains(s, "pepper-salt") || strings.Contains(s, "hashvalue") {
			t.Errorf("formatted credential leaks secrets: %s", s)
		}
	}

	var nilCred *Credential
	nilCred.Wipe()
	if nilCred.AuthReady() {
		t.Error("nil credential is not auth-ready")
	}
}
