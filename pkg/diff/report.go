package diff

import (
	"fmt"

	"github.com/chazu/semio/pkg/design"
	difflib "github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// DefaultContext is the number of context lines in a Report hunk.
const DefaultContext = 4

// Report renders base and proposed as YAML and returns a unified diff of
// the two documents. Identical designs yield an empty string.
func Report(base, proposed *design.Design, context int) (string, error) {
	if context <= 0 {
		context = DefaultContext
	}
	a, err := yaml.Marshal(base)
	if err != nil {
		return "", fmt.Errorf("encoding base design: %w", err)
	}
	b, err := yaml.Marshal(proposed)
	if err != nil {
		return "", fmt.Errorf("encoding proposed design: %w", err)
	}
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "a/" + base.ID().String(),
		ToFile:   "b/" + proposed.ID().String(),
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("rendering diff: %w", err)
	}
	return s, nil
}
