package github

import (
	"context"
	"fmt"
)

// GetPullRequest fetches a pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := c.get(ctx, path, &pr); err != nil {
		return nil, fmt.Errorf("getting PR %s/%s#%d: %w", owner, repo, number, err)
	}
	return &pr, nil
}

// UpdateBranch merges the base branch into the pull request head.
func (c *Client) UpdateBranch(ctx context.Context, owner, repo string, number int) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/update-branch", owner, repo, number)
	if err := c.put(ctx, path, struct{}{}, nil); err != nil {
		return fmt.Errorf("updating branch of PR %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}

type mergeRequest struct {
	CommitTitle   string      `json:"commit_title,omitempty"`
	CommitMessage string      `json:"commit_message,omitempty"`
	SHA           string      `json:"sha,omitempty"`
	MergeMethod   MergeMethod `json:"merge_method"`
}

// MergePullRequest merges the pull request. The method defaults to squash.
func (c *Client) MergePullRequest(ctx context.Context, owner, repo string, number int, opts MergeOptions) (*MergeResult, error) {
	method := opts.Method
	if method == "" {
		method = MergeMethodSquash
	}
	body := mergeRequest{
		CommitTitle:   opts.CommitTitle,
		CommitMessage: opts.CommitMessage,
		SHA:           opts.SHA,
		MergeMethod:   method,
	}
	var result MergeResult
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", owner, repo, number)
	if err := c.put(ctx, path, body, &result); err != nil {
		return nil, fmt.Errorf("merging PR %s/%s#%d: %w", owner, repo, number, err)
	}
	if !result.Merged {
		return &result, fmt.Errorf("merging PR %s/%s#%d: not merged: %s", owner, repo, number, result.Message)
	}
	return &result, nil
}
