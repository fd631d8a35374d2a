package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
)

// StatusResult is the output of the status command.
type StatusResult struct {
	Workspace string        `json:"workspace"`
	Actor     string        `json:"actor"`
	Summary   state.Summary `json:"summary"`
	Genesis   bool          `json:"genesis"`
	Version   string        `json:"genesis_version,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			key, err := ws.Genesis()
			if err != nil {
				return f.Fail(err)
			}
			res := StatusResult{
				Workspace: ws.Name(),
				Actor:     rootOpts.actor(ws),
				Summary:   state.Summarize(ops),
				Genesis:   key != nil,
			}
			if key != nil {
				res.Version = key.Genesis.Version
			}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Workspace: %s\n", res.Workspace)
				fmt.Fprintf(w, "Actor:     %s\n", res.Actor)
				fmt.Fprintf(w, "Operations: %d", res.Summary.Operations)
				if res.Summary.LastTS != "" {
					fmt.Fprintf(w, " (last %s)", res.Summary.LastTS)
				}
				fmt.Fprintln(w)
				fmt.Fprintf(w, "Memories:   %d\n", res.Summary.Memories)
				fmt.Fprintf(w, "Commitments: %d\n", res.Summary.Commitments)
				for _, st := range model.CommitmentStates {
					fmt.Fprintf(w, "  %-17s %d\n", st, res.Summary.ByState[st])
				}
				if res.Genesis {
					fmt.Fprintf(w, "Genesis key: v%s\n", res.Version)
				} else {
					fmt.Fprintln(w, "Genesis key: none")
				}
			})
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a memory or commitment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			id := args[0]
			if m, ok := state.GetMemory(ops, id); ok {
				return f.Success(m, func(w io.Writer) { printMemory(w, &m) })
			}
			if c, ok := state.GetCommitment(ops, id); ok {
				links := state.LinkedMemories(ops, id)
				dups := state.Duplicates(ops, id)
				return f.Success(c, func(w io.Writer) { printCommitment(w, &c, links, dups) })
			}
			return f.Fail(apperr.Newf(apperr.CodeRefNotFound, "No memory or commitment with id %s", id).With("id", id))
		},
	}
}

func printMemory(w io.Writer, m *model.Memory) {
	fmt.Fprintf(w, "%s  [%s]\n", m.ID, m.State)
	fmt.Fprintf(w, "  %s\n", m.Body)
	fmt.Fprintf(w, "  by %s at %s", m.Actor, m.TS)
	if m.Kind != "" {
		fmt.Fprintf(w, " (kind %s)", m.Kind)
	}
	fmt.Fprintln(w)
	if m.Path != "" {
		fmt.Fprintf(w, "  path: %s\n", m.Path)
	}
	printAnnotations(w, m.Annotations)
}

func printCommitment(w io.Writer, c *model.Commitment, links, dups []string) {
	fmt.Fprintf(w, "%s  [%s]\n", c.ID, c.State)
	fmt.Fprintf(w, "  %s\n", c.Body)
	fmt.Fprintf(w, "  source: %s  by %s at %s\n", c.Source, c.Actor, c.TS)
	if c.Owner != "" {
		fmt.Fprintf(w, "  owner: %s\n", c.Owner)
	}
	if c.Evidence != "" {
		fmt.Fprintf(w, "  evidence: %s (closed by %s)\n", c.Evidence, c.ClosedBy)
	}
	if c.DuplicateOf != "" {
		fmt.Fprintf(w, "  duplicate of: %s\n", c.DuplicateOf)
	}
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(c.Tags, ", "))
	}
	if len(links) > 0 {
		fmt.Fprintf(w, "  linked memories: %s\n", strings.Join(links, ", "))
	}
	if len(dups) > 0 {
		fmt.Fprintf(w, "  duplicates: %s\n", strings.Join(dups, ", "))
	}
	printAnnotations(w, c.Annotations)
}

func printAnnotations(w io.Writer, anns []model.Annotation) {
	for _, a := range anns {
		fmt.Fprintf(w, "  - %s: %s (%s)\n", a.Actor, a.Body, a.TS)
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories or commitments",
	}

	var memState, kind string
	memories := &cobra.Command{
		Use:   "memories",
		Short: "List memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			out := []model.Memory{}
			for _, m := range state.Memories(ops) {
				if memState != "" && string(m.State) != memState {
					continue
				}
				if kind != "" && m.Kind != kind {
					continue
				}
				out = append(out, m)
			}
			return f.Success(out, func(w io.Writer) {
				for _, m := range out {
					fmt.Fprintf(w, "%s  %-10s %s\n", m.ID, m.State, firstLine(m.Body))
				}
			})
		},
	}
	memories.Flags().StringVar(&memState, "state", "", "filter by triage state: untriaged|linked|dismissed|committed")
	memories.Flags().StringVarP(&kind, "kind", "k", "", "filter by kind")

	var filter state.Filter
	var cmtState string
	commitments := &cobra.Command{
		Use:   "commitments",
		Short: "List commitments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			filter.State = model.CommitmentState(cmtState)
			out := state.FilterCommitments(ops, filter)
			return f.Success(out, func(w io.Writer) {
				for _, c := range out {
					owner := c.Owner
					if owner == "" {
						owner = "-"
					}
					fmt.Fprintf(w, "%s  %-16s %-20s %s\n", c.ID, c.State, owner, firstLine(c.Body))
				}
			})
		},
	}
	commitments.Flags().StringVarP(&cmtState, "state", "s", "", "filter by state")
	commitments.Flags().StringVar(&filter.Owner, "owner", "", "filter by owner")
	commitments.Flags().StringVarP(&filter.Tag, "tag", "t", "", "filter by tag")

	cmd.AddCommand(memories, commitments)
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "..."
	}
	return s
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	var kind, actor string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show ledger operations, newest last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			out := []model.Operation{}
			for _, op := range ops {
				if kind != "" && string(op.Op) != kind {
					continue
				}
				if actor != "" && op.Actor != actor {
					continue
				}
				out = append(out, op)
			}
			if limit > 0 && len(out) > limit {
				out = out[len(out)-limit:]
			}
			return f.Success(out, func(w io.Writer) {
				for i := range out {
					fmt.Fprintf(w, "%s  %-8s %-12s %s\n", out[i].TS, out[i].Op, out[i].ID, describe(&out[i]))
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n operations")
	cmd.Flags().StringVarP(&kind, "op", "o", "", "filter by operation type")
	cmd.Flags().StringVar(&actor, "by", "", "filter by actor")
	return cmd
}
