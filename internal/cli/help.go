package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// walkCommands calls fn for cmd and every command below it, parents first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong lists a parent's visible subcommands, with their
// arguments, at the end of its Long text.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() {
		return
	}

	var subs []*cobra.Command
	width := 0
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		subs = append(subs, sub)
		width = max(width, len(sub.Use))
	}
	if len(subs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range subs {
		fmt.Fprintf(&sb, "  %-*s  %s\n", width, sub.Use, sub.Short)
	}
	fmt.Fprintf(&sb, "\nRun '%s <subcommand> --help' for details.", cmd.CommandPath())
	cmd.Long = sb.String()
}
