package whitelist

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestCheckerMatchesExactAndSubdomains(t *testing.T) {
	c := NewChecker("development", []string{"GitHub.com", " vercel.app ", "web.app."}, zaptest.NewLogger(t))

	tests := []struct {
		host   string
		want   bool
		domain string
	}{
		{"github.com", true, "github.com"},
		{"GITHUB.COM", true, "github.com"},
		{"gist.github.com", true, "github.com"},
		{"my-demo.vercel.app", true, "vercel.app"},
		{"web.app.", true, "web.app"},
		{"notgithub.com", false, ""},
		{"github.com.evil.example", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		domain, ok := c.Match(tt.host)
		if ok != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.host, ok, tt.want)
		}
		if domain != tt.domain {
			t.Errorf("Match(%q) domain = %q, want %q", tt.host, domain, tt.domain)
		}
	}
}

func TestEmptyCheckerMatchesNothing(t *testing.T) {
	c := NewChecker("empty", nil, nil)
	if c.IsListed("github.com") {
		t.Fatal("empty checker should not match")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}

func TestCheckerSkipsBlankEntries(t *testing.T) {
	c := NewChecker("blocked", []string{"", "  ", "evil.example"}, nil)
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	if c.Name() != "blocked" {
		t.Fatalf("Name() = %q", c.Name())
	}
}
