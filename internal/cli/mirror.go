package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/mirror"
)

// NewMirrorCommand creates the mirror command.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Reconcile the ledger into a SQLite mirror",
		Long: `Push every ledger operation the SQLite mirror does not have yet and
rebuild its memories and commitments tables.

A mirrored operation whose digest differs from the ledger's is reported as
E_LEDGER_CORRUPT and exits 2.

Examples:
  mentu mirror
  mentu mirror --db /tmp/mentu.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			path := dbPath
			if path == "" {
				path = ws.Config.Mirror.Path
			}
			if !filepath.IsAbs(path) {
				path = filepath.Join(ws.Dir(), path)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := mirror.Open(path, mirror.WithLogger(ws.Logger()))
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "failed to open mirror", err))
			}
			defer store.Close()

			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			rep, err := store.Reconcile(ctx, ops)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(rep, func(w io.Writer) {
				fmt.Fprintf(w, "Mirror %s: pushed %d, already present %d\n", path, rep.Pushed, rep.Skipped)
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "mirror database (default: mirror.path from config, relative to .mentu)")
	return cmd
}
