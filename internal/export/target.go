package export

import (
	"regexp"
	"strings"

	"github.com/conneroisu/blockwright/internal/errors"
)

// Kind is the type of component an export produces.
type Kind string

const (
	KindPageSection   Kind = "page-section"
	KindBuildingBlock Kind = "building-block"
)

// Dir returns the top-level directory of the kind.
func (k Kind) Dir() string {
	switch k {
	case KindPageSection:
		return "page-sections"
	case KindBuildingBlock:
		return "building-blocks"
	default:
		return ""
	}
}

// ParseKind accepts a kind in singular or plural form.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "page-section", "page-sections":
		return KindPageSection, nil
	case "building-block", "building-blocks":
		return KindBuildingBlock, nil
	default:
		return "", errors.NewInputError(errors.ErrCodeInvalidTarget, "unknown component kind: "+s, nil).
			WithContext("allowed", []string{string(KindPageSection), string(KindBuildingBlock)})
	}
}

// Target is what the author chose in the export dialog.
type Target struct {
	Kind     Kind   `json:"kind"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

// Resolved is a target with its name sanitized and its path built.
type Resolved struct {
	Kind     Kind   `json:"kind"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9-]`)

// SanitizeName lowercases name and replaces every character outside
// [a-z0-9-] with a hyphen.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Resolve validates the target and builds <kind-plural>/<category>/<name>.
func (t Target) Resolve() (Resolved, error) {
	if t.Kind.Dir() == "" {
		return Resolved{}, errors.NewInputError(errors.ErrCodeInvalidTarget, "unknown component kind: "+string(t.Kind), nil)
	}
	name := SanitizeName(t.Name)
	if strings.Trim(name, "-") == "" {
		return Resolved{}, errors.NewInputError(errors.ErrCodeInvalidTarget, "component name is required", nil)
	}
	category := SanitizeName(t.Category)
	if strings.Trim(category, "-") == "" {
		return Resolved{}, errors.NewInputError(errors.ErrCodeInvalidTarget, "category is required", nil)
	}

	return Resolved{
		Kind:     t.Kind,
		Category: category,
		Name:     name,
		Path:     t.Kind.Dir() + "/" + category + "/" + name,
	}, nil
}
