package runner

import "mergeq/internal/github"

// Action is the decision taken for one pull request in a run.
type Action int

const (
	NoOp Action = iota
	Drop
	Update
	Merge
)

func (a Action) String() string {
	switch a {
	case Drop:
		return "Drop"
	case Update:
		return "Update"
	case Merge:
		return "Merge"
	default:
		return "NoOp"
	}
}

// removesItem reports whether the action finishes the item.
func (a Action) removesItem() bool {
	return a == Drop || a == Merge
}

// Mergeability is GitHub's tri-state mergeable flag. Unknown means GitHub
// has not finished computing it yet.
type Mergeability int

const (
	MergeabilityUnknown Mergeability = iota
	Mergeable
	NotMergeable
)

// MergeabilityOf converts the API's nullable flag.
func MergeabilityOf(flag *bool) Mergeability {
	switch {
	case flag == nil:
		return MergeabilityUnknown
	case *flag:
		return Mergeable
	default:
		return NotMergeable
	}
}

// Status is the remote state Decide looks at.
type Status struct {
	Closed         bool
	Mergeable      Mergeability
	MergeableState string
}

// StatusOf extracts the decision inputs from a pull request.
func StatusOf(pr *github.PullRequest) Status {
	return Status{
		Closed:         pr.State == github.StateClosed,
		Mergeable:      MergeabilityOf(pr.Mergeable),
		MergeableState: pr.MergeableState,
	}
}

// Decide maps remote state to an action. The first matching rule wins:
// closed drops, behind updates, mergeable and clean merges. Anything else,
// including unknown mergeability, waits for the next run.
func Decide(s Status) Action {
	switch {
	case s.Closed:
		return Drop
	case s.MergeableState == github.MergeableStateBehind:
		return Update
	case s.Mergeable == Mergeable && s.MergeableState == github.MergeableStateClean:
		return Merge
	default:
		return NoOp
	}
}
