// Package pullrequest models the queued unit of work: a GitHub pull request
// identified by its URL.
package pullrequest

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidURL is returned for inputs that do not name a pull request.
var ErrInvalidURL = errors.New("invalid pull request url")

// PullRequest is an immutable queue item. Two values are the same item when
// their URLs match; the decomposed fields are derived from the URL.
type PullRequest struct {
	URL    string `json:"url"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// Parse validates raw and decomposes it into owner, repository, and number.
//
// Accepted forms:
//
//	https://github.com/<owner>/<repo>/pull/<n>
//	github.com/<owner>/<repo>/pull/<n>
//	<owner>/<repo>/pull/<n>
//
// Empty path segments (doubled slashes) are ignored and "pulls" is accepted
// as a synonym for "pull". Any host is allowed when a scheme is present so
// GitHub Enterprise URLs work.
func Parse(raw string) (PullRequest, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PullRequest{}, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	path := trimmed
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return PullRequest{}, fmt.Errorf("%w: %q: %v", ErrInvalidURL, trimmed, err)
		}
		if parsed.Host == "" {
			return PullRequest{}, fmt.Errorf("%w: %q has no host", ErrInvalidURL, trimmed)
		}
		path = parsed.Path
	} else {
		path, _, _ = strings.Cut(path, "#")
		path, _, _ = strings.Cut(path, "?")
		for _, host := range []string{"www.github.com/", "github.com/"} {
			if strings.HasPrefix(path, host) {
				path = strings.TrimPrefix(path, host)
				break
			}
		}
	}

	segments := make([]string, 0, 4)
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) != 4 {
		return PullRequest{}, fmt.Errorf("%w: %q: expected <owner>/<repo>/pull/<number>", ErrInvalidURL, trimmed)
	}
	if kind := segments[2]; kind != "pull" && kind != "pulls" {
		return PullRequest{}, fmt.Errorf("%w: %q: missing pull segment", ErrInvalidURL, trimmed)
	}
	number, err := strconv.Atoi(segments[3])
	if err != nil || number <= 0 {
		return PullRequest{}, fmt.Errorf("%w: %q: %q is not a pull request number", ErrInvalidURL, trimmed, segments[3])
	}

	return PullRequest{
		URL:    trimmed,
		Owner:  segments[0],
		Repo:   segments[1],
		Number: number,
	}, nil
}

// Valid reports whether raw parses as a pull request URL.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// Same reports whether p and other are the same queue item.
func (p PullRequest) Same(other PullRequest) bool {
	return p.URL == other.URL
}

// Slug renders owner/repo#number.
func (p PullRequest) Slug() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}

func (p PullRequest) String() string {
	return p.URL
}
