package commands

import (
	"context"
	"flag"
	"fmt"

	goversion "go.hein.dev/go-version"

	"daysched/internal/exitcode"
)

// Build information. Set at build time with -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct {
	short  bool
	output string
}

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print version" }
func (c *VersionCmd) Usage() string     { return "daysched version [--short] [--output json|yaml]" }
func (c *VersionCmd) NeedsAuth() bool   { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.short, "short", false, "")
	fs.StringVar(&c.output, "output", "json", "")
}

func (c *VersionCmd) Run(ctx context.Context, env *Env, args []string) int {
	output := c.output
	if output == "" {
		output = "json"
	}
	if output != "json" && output != "yaml" {
		return fail(env.ErrOut, fmt.Errorf("invalid output format: %s", output))
	}
	fmt.Fprint(env.Out, goversion.FuncWithOutput(c.short, Version, Commit, Date, output))
	return exitcode.Success
}
