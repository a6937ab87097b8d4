// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for kevai.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdServe Command = iota // Run the portfolio API server
	CmdChat                 // Interactive terminal chat
	CmdStatus               // Show configuration status
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	JSON    bool
	DataDir string

	// Command-specific
	Query string // Initial chat query (chat -q / deep link)
	Port  int    // Server port override (serve --port)

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `kevai - portfolio backend and chat assistant

Kevai serves Kevin Saji's portfolio site: the KevGPT chat assistant,
the Notion-backed blog, the contact form relay, GitHub stats, and
visit analytics.

Usage:
  kevai serve              Run the API server
  kevai chat               Interactive terminal chat
  kevai chat -q "query"    Chat, opening with an initial question
  kevai status, s          Show configuration status
  kevai version            Show version information
  kevai help               Show this help

Global flags:
  --data-dir <path>        Override the data directory (default ~/.kevai)
  --json                   Output in JSON format where supported
  --quiet                  Suppress log output

Serve flags:
  --port <port>            Listen port (default 8790)

Environment:
  DEEPSEEK_API_KEY         Chat completion provider key
  NOTION_API_KEY           Blog CMS integration token
  NOTION_DATABASE_ID       Blog posts database
  GITHUB_TOKEN             Raises the GitHub stats rate limit
  KEVAI_SMTP_USER          Contact form SMTP username
  KEVAI_SMTP_PASS          Contact form SMTP password
  KEVAI_BEARER_TOKEN       Enables bearer auth on the API
  KEVAI_PORT               Listen port override
  KEVAI_DATA_DIR           Data directory override
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsedArgs := parseGlobalFlags(args)

	// If no remaining args, default to serve
	if len(remaining) == 0 {
		return CmdServe, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "serve", "server":
		parseServeArgs(&parsedArgs, remaining)
		return CmdServe, parsedArgs

	case "chat":
		parseChatArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts flags valid for every command.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "--quiet":
			parsedArgs.Quiet = true
		case "--json":
			parsedArgs.JSON = true
		case "--data-dir":
			if i+1 < len(args) {
				i++
				parsedArgs.DataDir = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--data-dir=") {
				parsedArgs.DataDir = strings.TrimPrefix(arg, "--data-dir=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseServeArgs parses serve-specific flags.
func parseServeArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-p", "--port":
			if i+1 < len(remaining) {
				i++
				if port, err := strconv.Atoi(remaining[i]); err == nil {
					args.Port = port
				}
			}
		default:
			if strings.HasPrefix(arg, "--port=") {
				if port, err := strconv.Atoi(strings.TrimPrefix(arg, "--port=")); err == nil {
					args.Port = port
				}
			}
		}
	}
}

// parseChatArgs parses chat-specific flags. A bare positional argument is
// treated as the initial query, matching the website's ?q= deep link.
func parseChatArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-q", "--query":
			if i+1 < len(remaining) {
				i++
				args.Query = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--query="):
				args.Query = strings.TrimPrefix(arg, "--query=")
			case !strings.HasPrefix(arg, "-") && args.Query == "":
				args.Query = arg
			}
		}
	}
}

// HandleHelp prints usage information.
func HandleHelp() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf(`{"version":%q,"commit":%q,"built":%q}`+"\n", Version, GitCommit, BuildDate)
		return
	}
	fmt.Printf("kevai %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
