// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kevinksaji/kevai/internal/config"
)

// statusReport summarizes which collaborators are configured.
type statusReport struct {
	DataDir      string `json:"data_dir"`
	Port         int    `json:"port"`
	ChatReady    bool   `json:"chat_ready"`
	BlogReady    bool   `json:"blog_ready"`
	ContactReady bool   `json:"contact_ready"`
	StatsReady   bool   `json:"stats_ready"`
	AuthEnabled  bool   `json:"auth_enabled"`
}

// HandleStatus prints which parts of the backend are configured. Secrets are
// never printed, only whether they are present.
func HandleStatus(args Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if args.DataDir != "" {
		cfg.DataDir = args.DataDir
	}

	report := statusReport{
		DataDir:      cfg.DataDir,
		Port:         cfg.Server.Port,
		ChatReady:    cfg.Provider.APIKey != "",
		BlogReady:    cfg.CMS.APIKey != "" && cfg.CMS.DatabaseID != "",
		ContactReady: cfg.Mail.Username != "" && cfg.Mail.Password != "" && cfg.Mail.To != "",
		StatsReady:   cfg.Stats.Username != "",
		AuthEnabled:  cfg.Server.BearerToken != "",
	}

	if args.JSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Println("kevai status")
	fmt.Printf("  data dir:     %s\n", report.DataDir)
	fmt.Printf("  server port:  %d\n", report.Port)
	fmt.Printf("  chat:         %s\n", readiness(report.ChatReady))
	fmt.Printf("  blog:         %s\n", readiness(report.BlogReady))
	fmt.Printf("  contact:      %s\n", readiness(report.ContactReady))
	fmt.Printf("  stats:        %s\n", readiness(report.StatsReady))
	fmt.Printf("  bearer auth:  %s\n", enabled(report.AuthEnabled))
}

func readiness(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}
