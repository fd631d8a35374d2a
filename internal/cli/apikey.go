package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/workspace"
)

// APIKeyCreated is the output of api-key create. Secret is shown only once.
type APIKeyCreated struct {
	workspace.APIKey
	Secret string `json:"secret"`
}

// NewAPIKeyCommand creates the api-key command group.
func NewAPIKeyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api-key",
		Short: "Manage HTTP API keys",
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key acting as the resolved actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			secret, key, err := ws.CreateAPIKey(name, rootOpts.actor(ws))
			if err != nil {
				return f.Fail(err)
			}
			res := APIKeyCreated{APIKey: key, Secret: secret}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Created API key %s for %s\n", key.ID, key.Actor)
				fmt.Fprintf(w, "\n  %s\n\n", secret)
				fmt.Fprintln(w, "Store it now: the secret cannot be shown again.")
			})
		},
	}
	create.Flags().StringVar(&name, "name", "API Key", "key name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			keys, err := ws.APIKeys()
			if err != nil {
				return f.Fail(err)
			}
			if keys == nil {
				keys = []workspace.APIKey{}
			}
			return f.Success(keys, func(w io.Writer) {
				if len(keys) == 0 {
					fmt.Fprintln(w, "No API keys.")
					return
				}
				for _, k := range keys {
					fmt.Fprintf(w, "%s  %s...  %-20s %-12s %s\n",
						k.ID, k.KeyPrefix, k.Actor, strings.Join(k.Permissions, ","), k.Name)
				}
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <key_id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			if err := ws.RevokeAPIKey(args[0]); err != nil {
				return f.Fail(err)
			}
			return f.Success(map[string]string{"revoked": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Revoked %s\n", args[0])
			})
		},
	}

	cmd.AddCommand(create, list, revoke)
	return cmd
}
