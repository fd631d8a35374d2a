package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/workspace"
)

// opCommand describes one command that appends an operation. build turns
// positional args and flag values into a request.
type opCommand struct {
	use   string
	short string
	args  cobra.PositionalArgs
	flags func(cmd *cobra.Command, req *workspace.Request, extra *opFlags)
	build func(args []string, req *workspace.Request, extra *opFlags) error
}

// opFlags holds flag values that need parsing before they fit a request.
type opFlags struct {
	refs      string
	tags      string
	evidence  string
	reviewed  string
	decisions string
	meta      string
}

func newOperationCommands(rootOpts *RootOptions) []*cobra.Command {
	defs := []opCommand{
		{
			use:   "capture <body>",
			short: "Record an observation as a memory",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, x *opFlags) {
				cmd.Flags().StringVarP(&req.Kind, "kind", "k", "", "type of observation (evidence, bug_report, document, ...)")
				cmd.Flags().StringVarP(&req.Path, "path", "p", "", "document path")
				cmd.Flags().StringVarP(&x.refs, "refs", "r", "", "related ids, comma-separated")
				cmd.Flags().StringVar(&req.SourceKey, "source-key", "", "idempotency key from the origin system")
				cmd.Flags().StringVar(&x.meta, "meta", "", "metadata as a JSON object")
			},
			build: func(args []string, req *workspace.Request, x *opFlags) error {
				req.Op = model.KindCapture
				req.Body = args[0]
				req.Refs = splitList(x.refs)
				return decodeFlagJSON("meta", x.meta, &req.Meta)
			},
		},
		{
			use:   "commit <body>",
			short: "Commit to work sourced from a memory",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, x *opFlags) {
				cmd.Flags().StringVarP(&req.Source, "source", "s", "", "source memory id (required)")
				cmd.Flags().StringVarP(&x.tags, "tags", "t", "", "comma-separated tags")
				cmd.Flags().StringVar(&x.meta, "meta", "", "metadata as a JSON object")
			},
			build: func(args []string, req *workspace.Request, x *opFlags) error {
				req.Op = model.KindCommit
				req.Body = args[0]
				req.Tags = splitList(x.tags)
				return decodeFlagJSON("meta", x.meta, &req.Meta)
			},
		},
		{
			use:   "claim <commitment>",
			short: "Take ownership of a commitment",
			args:  cobra.ExactArgs(1),
			build: func(args []string, req *workspace.Request, _ *opFlags) error {
				req.Op = model.KindClaim
				req.Commitment = args[0]
				return nil
			},
		},
		{
			use:   "release <commitment>",
			short: "Give up ownership of a commitment",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, _ *opFlags) {
				cmd.Flags().StringVarP(&req.Reason, "reason", "r", "", "reason for releasing")
			},
			build: func(args []string, req *workspace.Request, _ *opFlags) error {
				req.Op = model.KindRelease
				req.Commitment = args[0]
				return nil
			},
		},
		{
			use:   "close <commitment>",
			short: "Close a commitment with evidence or as a duplicate",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, x *opFlags) {
				cmd.Flags().StringVarP(&x.evidence, "evidence", "e", "", "evidence memory id")
				cmd.Flags().StringVarP(&req.DuplicateOf, "duplicate-of", "d", "", "close as duplicate of another commitment")
			},
			build: func(args []string, req *workspace.Request, x *opFlags) error {
				req.Op = model.KindClose
				req.Commitment = args[0]
				req.Evidence = splitList(x.evidence)
				return nil
			},
		},
		{
			use:   "annotate <target> <body>",
			short: "Attach a note to a memory or commitment",
			args:  cobra.ExactArgs(2),
			flags: func(cmd *cobra.Command, req *workspace.Request, x *opFlags) {
				cmd.Flags().StringVarP(&req.Kind, "kind", "k", "", "type of annotation")
				cmd.Flags().StringVarP(&x.refs, "refs", "r", "", "related ids, comma-separated")
			},
			build: func(args []string, req *workspace.Request, x *opFlags) error {
				req.Op = model.KindAnnotate
				req.Target = args[0]
				req.Body = args[1]
				req.Refs = splitList(x.refs)
				return nil
			},
		},
		{
			use:   "link <source> <target>",
			short: "Link a memory or commitment to a commitment",
			args:  cobra.ExactArgs(2),
			flags: func(cmd *cobra.Command, req *workspace.Request, _ *opFlags) {
				cmd.Flags().StringVarP(&req.Kind, "kind", "k", string(model.LinkRelated), "link type: related|duplicate|caused_by|blocks|evidence")
				cmd.Flags().StringVarP(&req.Reason, "reason", "r", "", "explanation for the link")
			},
			build: func(args []string, req *workspace.Request, _ *opFlags) error {
				req.Op = model.KindLink
				req.Source = args[0]
				req.Target = args[1]
				return nil
			},
		},
		{
			use:   "dismiss <memory>",
			short: "Mark a memory as not actionable",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, x *opFlags) {
				cmd.Flags().StringVarP(&req.Reason, "reason", "r", "", "why the memory is dismissed (required)")
				cmd.Flags().StringVarP(&x.tags, "tags", "t", "", "comma-separated tags")
			},
			build: func(args []string, req *workspace.Request, x *opFlags) error {
				req.Op = model.KindDismiss
				req.Memory = args[0]
				req.Tags = splitList(x.tags)
				return nil
			},
		},
		{
			use:   "triage",
			short: "Record a triage session over a set of memories",
			args:  cobra.NoArgs,
			flags: func(cmd *cobra.Command, req *workspace.Request, x *opFlags) {
				cmd.Flags().StringVar(&x.reviewed, "reviewed", "", "reviewed memory ids, comma-separated (required)")
				cmd.Flags().StringVarP(&req.Summary, "summary", "s", "", "session summary (required)")
				cmd.Flags().StringVar(&x.decisions, "decisions", "", `decisions as JSON, e.g. [{"memory":"mem_x","action":"dismiss"}]`)
			},
			build: func(_ []string, req *workspace.Request, x *opFlags) error {
				req.Op = model.KindTriage
				req.Reviewed = splitList(x.reviewed)
				return decodeFlagJSON("decisions", x.decisions, &req.Decisions)
			},
		},
		{
			use:   "submit <commitment>",
			short: "Submit claimed work for review",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, x *opFlags) {
				cmd.Flags().StringVarP(&x.evidence, "evidence", "e", "", "evidence memory ids, comma-separated (required)")
				cmd.Flags().StringVarP(&req.Summary, "summary", "s", "", "summary of the work done")
				cmd.Flags().StringVar(&req.Tier, "tier", "", "validation tier")
			},
			build: func(args []string, req *workspace.Request, x *opFlags) error {
				req.Op = model.KindSubmit
				req.Commitment = args[0]
				req.Evidence = splitList(x.evidence)
				return nil
			},
		},
		{
			use:   "approve <commitment>",
			short: "Approve submitted work and close the commitment",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, _ *opFlags) {
				cmd.Flags().StringVarP(&req.Comment, "comment", "c", "", "approval comment")
				cmd.Flags().StringVar(&req.Tier, "tier", "", "validation tier")
			},
			build: func(args []string, req *workspace.Request, _ *opFlags) error {
				req.Op = model.KindApprove
				req.Commitment = args[0]
				return nil
			},
		},
		{
			use:   "reopen <commitment>",
			short: "Reopen submitted or closed work",
			args:  cobra.ExactArgs(1),
			flags: func(cmd *cobra.Command, req *workspace.Request, _ *opFlags) {
				cmd.Flags().StringVarP(&req.Reason, "reason", "r", "", "reason for reopening (required)")
			},
			build: func(args []string, req *workspace.Request, _ *opFlags) error {
				req.Op = model.KindReopen
				req.Commitment = args[0]
				return nil
			},
		},
	}

	cmds := make([]*cobra.Command, 0, len(defs))
	for _, d := range defs {
		cmds = append(cmds, d.command(rootOpts))
	}
	return cmds
}

func (d opCommand) command(rootOpts *RootOptions) *cobra.Command {
	req := &workspace.Request{}
	extra := &opFlags{}
	cmd := &cobra.Command{
		Use:   d.use,
		Short: d.short,
		Args:  d.args,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if err := d.build(args, req, extra); err != nil {
				return f.Fail(err)
			}
			return runOperation(cmd.Context(), rootOpts, cmd, *req)
		},
	}
	if d.flags != nil {
		d.flags(cmd, req, extra)
	}
	return cmd
}

// runOperation opens the workspace, resolves the actor and applies req.
func runOperation(ctx context.Context, opts *RootOptions, cmd *cobra.Command, req workspace.Request) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)
	ws, err := opts.open(cmd)
	if err != nil {
		return f.Fail(err)
	}
	actor := opts.actor(ws)
	f.VerboseLog("applying %s as %s", req.Op, actor)

	op, err := ws.Submit(ctx, req, actor)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(op, func(w io.Writer) {
		fmt.Fprintln(w, describe(&op))
	})
}

func describe(op *model.Operation) string {
	switch p := op.Payload.(type) {
	case *model.CapturePayload:
		return fmt.Sprintf("Captured %s", op.ID)
	case *model.CommitPayload:
		return fmt.Sprintf("Committed %s (source %s)", op.ID, p.Source)
	case *model.ClaimPayload:
		return fmt.Sprintf("Claimed %s as %s", p.Commitment, op.Actor)
	case *model.ReleasePayload:
		return fmt.Sprintf("Released %s", p.Commitment)
	case *model.ClosePayload:
		if p.DuplicateOf != "" {
			return fmt.Sprintf("Closed %s as duplicate of %s", p.Commitment, p.DuplicateOf)
		}
		return fmt.Sprintf("Closed %s with evidence %s", p.Commitment, p.Evidence)
	case *model.AnnotatePayload:
		return fmt.Sprintf("Annotated %s (%s)", p.Target, op.ID)
	case *model.LinkPayload:
		return fmt.Sprintf("Linked %s -> %s (%s)", p.Source, p.Target, p.LinkKindOrDefault())
	case *model.DismissPayload:
		return fmt.Sprintf("Dismissed %s", p.Memory)
	case *model.TriagePayload:
		return fmt.Sprintf("Triaged %d memories (%s)", len(p.Reviewed), op.ID)
	case *model.SubmitPayload:
		return fmt.Sprintf("Submitted %s for review", p.Commitment)
	case *model.ApprovePayload:
		return fmt.Sprintf("Approved %s", p.Commitment)
	case *model.ReopenPayload:
		return fmt.Sprintf("Reopened %s", p.Commitment)
	default:
		return op.ID
	}
}

// decodeFlagJSON decodes a JSON flag value into dst. An empty value leaves
// dst untouched.
func decodeFlagJSON(flag, value string, dst any) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return apperr.Newf(apperr.CodeInvalidOp, "Invalid JSON in --%s: %v", flag, err).With("field", flag)
	}
	return nil
}
