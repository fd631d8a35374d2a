package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/workspace"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Name        string
	InitActor   string
	Force       bool
	NoGenesis   bool
	NoGitignore bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .mentu workspace in the current directory",
		Long: `Create .mentu/ with an empty ledger, a config file and a genesis key
template, and add .mentu/ to .gitignore.

Examples:
  mentu init
  mentu init --name billing --default-actor alice@example.com
  mentu init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "workspace name (default: directory name)")
	cmd.Flags().StringVar(&opts.InitActor, "default-actor", "", "default actor stored in config")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite an existing workspace")
	cmd.Flags().BoolVar(&opts.NoGenesis, "no-genesis", false, "skip the genesis key template")
	cmd.Flags().BoolVar(&opts.NoGitignore, "no-gitignore", false, "skip .gitignore modification")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	res, err := workspace.Init(opts.Dir, workspace.InitOptions{
		Name:      opts.Name,
		Actor:     opts.InitActor,
		Force:     opts.Force,
		Genesis:   !opts.NoGenesis,
		Gitignore: !opts.NoGitignore,
	}, opts.workspaceOptions(cmd)...)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "Initialized mentu workspace in %s\n", res.Workspace)
		for _, name := range res.Created {
			fmt.Fprintf(w, "  created %s\n", name)
		}
		if res.GitignoreUpdated {
			fmt.Fprintln(w, "  added .mentu/ to .gitignore")
		}
	})
}
