package aad

import (
	"bytes"
	"testing"
)

func TestContent(t *testing.T) {
	a1 := Content("env-1", "alice")
	a2 := Content("env-1", "alice")
	if !bytes.Equal(a1, a2) {
		t.Error("Content should be deterministic")
	}

	if bytes.Equal(a1, Content("env-2", "alice")) {
		t.Error("Content should differ for different envelope IDs")
	}
	if bytes.Equal(a1, Content("env-1", "bob")) {
		t.Error("Content should differ for different senders")
	}
}

func TestKeyWrap(t *testing.T) {
	a1 := KeyWrap("env-1", "alice", "bob")
	a2 := KeyWrap("env-1", "alice", "bob")
	if !bytes.Equal(a1, a2) {
		t.Error("KeyWrap should be deterministic")
	}

	if bytes.Equal(a1, KeyWrap("env-1", "alice", "carol")) {
		t.Error("KeyWrap should differ for different recipients")
	}
	if bytes.Equal(a1, Content("env-1", "alice")) {
		t.Error("KeyWrap and Content labels must not collide")
	}
}

func TestNoLengthExtensionCollision(t *testing.T) {
	// ("ab","c") and ("a","bc") must build different AAD.
	a1 := Content("ab", "c")
	a2 := Content("a", "bc")
	if bytes.Equal(a1, a2) {
		t.Error("length prefixing failed to separate field boundaries")
	}
}
