package authoring

import (
	"fmt"
	"strings"

	"github.com/toothbrush/webverse-authoring/aem"
)

// ValidationError means the request itself is wrong.  It is always returned before any call to
// AEM is made.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("authoring: invalid %s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func requirePath(field, p string) error {
	if p == "" {
		return invalid(field, "is required")
	}
	if err := aem.ValidatePath(p); err != nil {
		return invalid(field, "%s is not an absolute repository path", quote(p))
	}
	return nil
}

// requireName checks a single path segment, such as a page or component name.
func requireName(field, name string) error {
	switch {
	case name == "":
		return invalid(field, "is required")
	case strings.ContainsAny(name, "/\\?#"):
		return invalid(field, "%s must not contain path separators", quote(name))
	case name == "." || name == "..":
		return invalid(field, "%s is not a valid name", quote(name))
	}
	return nil
}

// requireProperties checks that props can be written with the Sling POST servlet.
func requireProperties(field string, props aem.Properties) error {
	if _, err := props.Form(); err != nil {
		return invalid(field, "%s", strings.TrimPrefix(err.Error(), "aem: "))
	}
	return nil
}

func indexed(list string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, field)
}
