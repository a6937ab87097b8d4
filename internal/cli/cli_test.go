// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"testing"
)

func parseArgs(t *testing.T, args ...string) (Command, Args) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"kevai"}, args...)
	return Parse()
}

func TestParseDefaultsToServe(t *testing.T) {
	cmd, _ := parseArgs(t)
	if cmd != CmdServe {
		t.Errorf("cmd = %v, want CmdServe", cmd)
	}
}

func TestParseServePort(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"long flag", []string{"serve", "--port", "9000"}, 9000},
		{"equals form", []string{"serve", "--port=9001"}, 9001},
		{"short flag", []string{"serve", "-p", "9002"}, 9002},
		{"invalid ignored", []string{"serve", "--port", "nope"}, 0},
		{"absent", []string{"serve"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := parseArgs(t, tt.args...)
			if cmd != CmdServe {
				t.Fatalf("cmd = %v, want CmdServe", cmd)
			}
			if args.Port != tt.want {
				t.Errorf("Port = %d, want %d", args.Port, tt.want)
			}
		})
	}
}

func TestParseChatQuery(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short flag", []string{"chat", "-q", "who is kevin?"}, "who is kevin?"},
		{"long flag", []string{"chat", "--query", "hello"}, "hello"},
		{"equals form", []string{"chat", "--query=hi"}, "hi"},
		{"positional", []string{"chat", "tell me about animeet"}, "tell me about animeet"},
		{"no query", []string{"chat"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := parseArgs(t, tt.args...)
			if cmd != CmdChat {
				t.Fatalf("cmd = %v, want CmdChat", cmd)
			}
			if args.Query != tt.want {
				t.Errorf("Query = %q, want %q", args.Query, tt.want)
			}
		})
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := parseArgs(t, "--json", "--quiet", "--data-dir", "/tmp/kevai", "status")
	if cmd != CmdStatus {
		t.Fatalf("cmd = %v, want CmdStatus", cmd)
	}
	if !args.JSON {
		t.Error("JSON flag not set")
	}
	if !args.Quiet {
		t.Error("Quiet flag not set")
	}
	if args.DataDir != "/tmp/kevai" {
		t.Errorf("DataDir = %q", args.DataDir)
	}
}

func TestParseChatShortQueryDoesNotSetQuiet(t *testing.T) {
	_, args := parseArgs(t, "chat", "-q", "hello")
	if args.Query != "hello" {
		t.Errorf("Query = %q, want %q", args.Query, "hello")
	}
	if args.Quiet {
		t.Error("chat -q must not enable quiet mode")
	}
}

func TestParseUnknownCommandFallsBackToHelp(t *testing.T) {
	cmd, _ := parseArgs(t, "frobnicate")
	if cmd != CmdHelp {
		t.Errorf("cmd = %v, want CmdHelp", cmd)
	}
}
