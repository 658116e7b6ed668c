package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomain(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.example.com/page", "example.com"},
		{"http://blog.test.org/post/123", "blog.test.org"},
		{"https://EXAMPLE.com", "example.com"},
		{"https://www.GitHub.com:443/x", "github.com"},
		{"https://www.www.example.com", "www.example.com"},
		{"not a url", ""},
		{"https://", ""},
		{"://broken", ""},
		{"", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, Domain(tc.url), "domain for %q", tc.url)
	}
}

func TestClassify_ExactMatch(t *testing.T) {
	c := New(nil)

	assert.Equal(t, Result{Domain: "github.com", Category: Work}, c.Classify("https://github.com/runnerr0"))
	assert.Equal(t, Result{Domain: "facebook.com", Category: Social}, c.Classify("https://www.facebook.com/"))
	assert.Equal(t, Result{Domain: "netflix.com", Category: Entertainment}, c.Classify("https://NETFLIX.com/browse"))
	assert.Equal(t, Result{Domain: "example.com", Category: Other}, c.Classify("https://example.com"))
}

func TestClassify_NoSubstringSpoofing(t *testing.T) {
	c := New(nil)

	got := c.Classify("https://facebook.com.evil.com/login")
	assert.Equal(t, "facebook.com.evil.com", got.Domain)
	assert.Equal(t, Other, got.Category)

	// Subdomains are distinct domains too.
	assert.Equal(t, Other, c.Classify("https://m.facebook.com").Category)
}

func TestClassify_MalformedFailsSoft(t *testing.T) {
	c := New(nil)
	assert.Equal(t, Result{}, c.Classify("%%%"))
	assert.Equal(t, Result{}, c.Classify("mailto:someone"))
}

func TestClassify_Overrides(t *testing.T) {
	c := New(map[string]string{
		"www.Reddit.com": "Social",
		"github.com":     "Code",
		"empty.com":      "",
	})

	assert.Equal(t, "Social", c.Category("reddit.com"))
	assert.Equal(t, "Code", c.Category("github.com"))
	assert.Equal(t, Other, c.Category("empty.com"))
	assert.Contains(t, c.Categories(), "Code")
	assert.Equal(t, Other, c.Categories()[len(c.Categories())-1])
}

func TestIsInternal(t *testing.T) {
	assert.True(t, IsInternal("chrome://extensions"))
	assert.True(t, IsInternal("chrome-extension://abc/popup.html"))
	assert.True(t, IsInternal("about:blank"))
	assert.True(t, IsInternal("edge://settings"))
	assert.True(t, IsInternal(""))
	assert.False(t, IsInternal("https://example.com"))
	assert.False(t, IsInternal("http://chrome.com"))
}
