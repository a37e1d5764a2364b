package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"daysched/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	// Registry lists the commands to describe. Nil means DefaultRegistry.
	Registry *Registry
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "daysched help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string) int {
	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry
	}
	writeHelp(env.Out, reg)
	return exitcode.Success
}

func writeHelp(w io.Writer, reg *Registry) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  daysched                 Show today's schedule")
	for _, cmd := range reg.All() {
		fmt.Fprintf(w, "  %s\n", cmd.Usage())
		line := cmd.Synopsis()
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			line += " (alias: " + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintf(w, "      %s\n", line)
	}
	fmt.Fprint(w, commonFlagsHelp)
}

const commonFlagsHelp = `
Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
