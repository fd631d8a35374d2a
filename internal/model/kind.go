package model

// Kind is the discriminator of an operation ("op" on the wire).
type Kind string

const (
	KindCapture  Kind = "capture"
	KindCommit   Kind = "commit"
	KindClaim    Kind = "claim"
	KindRelease  Kind = "release"
	KindClose    Kind = "close"
	KindAnnotate Kind = "annotate"
	KindLink     Kind = "link"
	KindDismiss  Kind = "dismiss"
	KindTriage   Kind = "triage"
	KindSubmit   Kind = "submit"
	KindApprove  Kind = "approve"
	KindReopen   Kind = "reopen"
)

// Kinds lists every recognized kind in declaration order.
var Kinds = []Kind{
	KindCapture, KindCommit, KindClaim, KindRelease, KindClose, KindAnnotate,
	KindLink, KindDismiss, KindTriage, KindSubmit, KindApprove, KindReopen,
}

// Valid reports whether k is one of the recognized kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// LinkKind classifies the relationship recorded by a link operation.
type LinkKind string

const (
	LinkRelated   LinkKind = "related"
	LinkDuplicate LinkKind = "duplicate"
	LinkCausedBy  LinkKind = "caused_by"
	LinkBlocks    LinkKind = "blocks"
	LinkEvidence  LinkKind = "evidence"
)

// LinkKinds lists the accepted link kinds.
var LinkKinds = []LinkKind{LinkRelated, LinkDuplicate, LinkCausedBy, LinkBlocks, LinkEvidence}

// Valid reports whether l is an accepted link kind.
func (l LinkKind) Valid() bool {
	for _, known := range LinkKinds {
		if l == known {
			return true
		}
	}
	return false
}

// CommitmentState is the derived lifecycle state of a commitment.
type CommitmentState string

const (
	StateOpen            CommitmentState = "open"
	StateClaimed         CommitmentState = "claimed"
	StateInReview        CommitmentState = "in_review"
	StateReopened        CommitmentState = "reopened"
	StateClosed          CommitmentState = "closed"
	StateClosedDuplicate CommitmentState = "closed_duplicate"
)

// CommitmentStates lists every commitment state in lifecycle order.
var CommitmentStates = []CommitmentState{
	StateOpen, StateClaimed, StateInReview, StateReopened, StateClosed, StateClosedDuplicate,
}

// Closed reports whether s is a terminal closure (evidence or duplicate).
func (s CommitmentState) Closed() bool {
	return s == StateClosed || s == StateClosedDuplicate
}

// MemoryState is the derived triage state of a memory.
type MemoryState string

const (
	MemoryUntriaged MemoryState = "untriaged"
	MemoryCommitted MemoryState = "committed"
	MemoryLinked    MemoryState = "linked"
	MemoryDismissed MemoryState = "dismissed"
)

// TriageAction is the decision recorded for one memory in a triage batch.
type TriageAction string

const (
	TriageCreate  TriageAction = "create"
	TriageLink    TriageAction = "link"
	TriageDismiss TriageAction = "dismiss"
	TriageDefer   TriageAction = "defer"
)

// Valid reports whether a is a recognized triage action.
func (a TriageAction) Valid() bool {
	switch a {
	case TriageCreate, TriageLink, TriageDismiss, TriageDefer:
		return true
	}
	return false
}
