package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for HTMLephant.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "htmlephant",
		Short: "Find out why your pages are so heavy",
		Long: `HTMLephant audits a site's page weight starting from its XML sitemap.

It groups the sitemap URLs into path templates, samples a few pages per
template, and reports the heavy embedded elements it finds (inline scripts,
JSON data islands, embedded SVGs, base64 images, and more), classified
against known third-party services such as tag managers and analytics
snippets. Findings seen on every page are flagged as site-wide so you know
whether a fix lands once or everywhere.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
