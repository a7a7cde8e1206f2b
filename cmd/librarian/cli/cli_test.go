package cli

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"serve": false,
		"chat":  false,
		"books": false,
		"index": false,
	}
	for _, cmd := range RootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestBooksSubcommands(t *testing.T) {
	for _, cmd := range RootCmd.Commands() {
		if cmd.Name() != "books" {
			continue
		}
		names := map[string]bool{}
		for _, sub := range cmd.Commands() {
			names[sub.Name()] = true
		}
		for _, want := range []string{"list", "add", "show"} {
			if !names[want] {
				t.Errorf("books %s not registered", want)
			}
		}
		return
	}
	t.Fatal("books command not found")
}
