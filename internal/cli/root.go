package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/workspace"
)

// Version is reported by `mentu --version` and the HTTP health check.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Actor   string
	Dir     string

	wsOpts []workspace.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mentu CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mentu",
		Short:   "mentu - an append-only ledger of memories and commitments",
		Long:    "Capture observations, commit to work, and close it with evidence. Every change is an operation appended to .mentu/ledger.jsonl.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "actor identity (default: $MENTU_ACTOR, config, git user.email)")
	cmd.PersistentFlags().StringVarP(&opts.Dir, "workspace", "C", ".", "directory inside the workspace")

	cmd.AddCommand(NewInitCommand(opts))
	for _, c := range newOperationCommands(opts) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewClassifyCommand(opts))
	cmd.AddCommand(NewGenesisCommand(opts))
	cmd.AddCommand(NewAPIKeyCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes to stderr so JSON on stdout is never interleaved with logs.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) workspaceOptions(cmd *cobra.Command) []workspace.Option {
	return append([]workspace.Option{workspace.WithLogger(o.logger(cmd))}, o.wsOpts...)
}

func (o *RootOptions) open(cmd *cobra.Command) (*workspace.Workspace, error) {
	return workspace.Open(o.Dir, o.workspaceOptions(cmd)...)
}

func (o *RootOptions) actor(ws *workspace.Workspace) string {
	return workspace.ResolveActor(o.Actor, ws.Config)
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
