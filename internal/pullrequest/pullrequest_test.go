package pullrequest_test

import (
	"errors"
	"testing"

	"mergeq/internal/pullrequest"
)

func TestParseAcceptedForms(t *testing.T) {
	tests := []struct {
		raw    string
		owner  string
		repo   string
		number int
	}{
		{raw: "https://github.com/Liberatys/rusty-merge/pull/400", owner: "Liberatys", repo: "rusty-merge", number: 400},
		{raw: "github.com/Liberatys/rusty-merge/pull/400", owner: "Liberatys", repo: "rusty-merge", number: 400},
		{raw: "Liberatys/rusty-merge/pull/400", owner: "Liberatys", repo: "rusty-merge", number: 400},
		{raw: "Liberatys/rusty-merge//pull/400", owner: "Liberatys", repo: "rusty-merge", number: 400},
		{raw: "https://github.com/Liberatys/rusty-merge//pull/400", owner: "Liberatys", repo: "rusty-merge", number: 400},
		{raw: "https://ghe.example.com/platform/api/pull/7/", owner: "platform", repo: "api", number: 7},
		{raw: "https://github.com/o/r/pull/12#issuecomment-1", owner: "o", repo: "r", number: 12},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			pr, err := pullrequest.Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.raw, err)
			}
			if pr.Owner != tt.owner || pr.Repo != tt.repo || pr.Number != tt.number {
				t.Fatalf("Parse(%q) = %+v", tt.raw, pr)
			}
			if pr.URL != tt.raw {
				t.Fatalf("URL should be kept verbatim, got %q", pr.URL)
			}
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"Liberatys/rusty-merge/400",
		"https://github.com/Liberatys/rusty-merge/400",
		"Liberatys/pull/400",
		"https://github.com/Liberatys/pull/400",
		"https://github.com/o/r/issues/4",
		"https://github.com/o/r/pull/abc",
		"https://github.com/o/r/pull/0",
		"https:///o/r/pull/1",
	} {
		if _, err := pullrequest.Parse(raw); !errors.Is(err, pullrequest.ErrInvalidURL) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidURL", raw, err)
		}
		if pullrequest.Valid(raw) {
			t.Fatalf("Valid(%q) = true", raw)
		}
	}
}

func TestSameComparesURLOnly(t *testing.T) {
	a := pullrequest.PullRequest{URL: "https://url.com", Owner: "a"}
	b := pullrequest.PullRequest{URL: "https://url.com", Owner: "b"}
	c := pullrequest.PullRequest{URL: "://url.com", Owner: "a"}
	if !a.Same(b) {
		t.Fatal("expected equal URLs to be the same item")
	}
	if a.Same(c) {
		t.Fatal("expected different URLs to differ")
	}
}

func TestSlug(t *testing.T) {
	pr, err := pullrequest.Parse("o/r/pull/9")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := pr.Slug(); got != "o/r#9" {
		t.Fatalf("Slug = %q", got)
	}
}
