package intake

import (
	"regexp"
	"strings"
)

// Issue is the subset of a work-tracker issue the intake rule can inspect.
type Issue struct {
	Number uint64   `json:"number" binding:"required"`
	Author string   `json:"author" binding:"required"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

func (i Issue) attributes() map[string]any {
	labels := i.Labels
	if labels == nil {
		labels = []string{}
	}
	return map[string]any{
		"number": int64(i.Number),
		"author": i.Author,
		"title":  i.Title,
		"body":   i.Body,
		"labels": labels,
	}
}

// Result reports what intake did with an issue.
type Result struct {
	ContributionID uint64 `json:"contribution_id,string"`
	Handle         string `json:"handle"`
	Approved       bool   `json:"approved"`
	Address        string `json:"address,omitempty"`
}

var publicAddress = regexp.MustCompile(`### Public Address\s*\n([A-Za-z0-9]+)`)

// ParsePublicAddress extracts the account listed under the
// "### Public Address" heading of an issue body.
func ParsePublicAddress(body string) (string, bool) {
	m := publicAddress.FindStringSubmatch(strings.ReplaceAll(body, "\r\n", "\n"))
	if m == nil {
		return "", false
	}
	return m[1], true
}
