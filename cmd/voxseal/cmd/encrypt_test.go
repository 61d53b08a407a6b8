package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmcleod/voxseal/keypair"
	"github.com/jmcleod/voxseal/keystore/memory"
)

func writePubKeyFile(t *testing.T, userID string) string {
	t.Helper()
	mgr := keypair.NewManager(memory.NewStore())
	if err := mgr.Initialize(context.Background(), userID); err != nil {
		t.Fatal(err)
	}
	pub, err := mgr.ExportPublicKey()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), userID+".pub")
	if err := os.WriteFile(path, pub, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRecipientArgs(t *testing.T) {
	bobFile := writePubKeyFile(t, "bob")
	carolFile := writePubKeyFile(t, "carol")

	recipients, err := parseRecipientArgs([]string{"bob=" + bobFile, "carol=" + carolFile})
	if err != nil {
		t.Fatalf("parseRecipientArgs: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("got %d recipients, want 2", len(recipients))
	}
	if _, ok := recipients["bob"]; !ok {
		t.Fatal("bob missing from recipient set")
	}
}

func TestParseRecipientArgs_Errors(t *testing.T) {
	bobFile := writePubKeyFile(t, "bob")

	badKey := filepath.Join(t.TempDir(), "bad.pub")
	if err := os.WriteFile(badKey, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		args []string
	}{
		{"MissingEquals", []string{"bob"}},
		{"EmptyID", []string{"=" + bobFile}},
		{"EmptyFile", []string{"bob="}},
		{"NoSuchFile", []string{"bob=/does/not/exist.pub"}},
		{"MalformedKey", []string{"bob=" + badKey}},
		{"DuplicateRecipient", []string{"bob=" + bobFile, "bob=" + bobFile}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseRecipientArgs(tc.args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
