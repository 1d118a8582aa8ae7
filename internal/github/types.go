package github

// Pull request states and the mergeable_state values the runner acts on.
const (
	StateOpen   = "open"
	StateClosed = "closed"

	MergeableStateClean  = "clean"
	MergeableStateBehind = "behind"
)

// PullRequest is the subset of the GitHub pull request resource mergeq reads.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Draft   bool   `json:"draft"`
	Merged  bool   `json:"merged"`

	// Mergeable is nil while GitHub is still computing mergeability.
	Mergeable      *bool  `json:"mergeable"`
	MergeableState string `json:"mergeable_state"`

	Head Branch `json:"head"`
	Base Branch `json:"base"`
}

// Branch is a pull request head or base reference.
type Branch struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// MergeMethod selects how GitHub combines the commits.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// MergeOptions are sent with a merge request. Empty title and message keep
// GitHub's defaults.
type MergeOptions struct {
	Method        MergeMethod
	CommitTitle   string
	CommitMessage string
	// SHA, when set, makes the merge fail with 409 if the head moved.
	SHA string
}

// MergeResult is GitHub's answer to a merge request.
type MergeResult struct {
	SHA     string `json:"sha"`
	Merged  bool   `json:"merged"`
	Message string `json:"message"`
}
