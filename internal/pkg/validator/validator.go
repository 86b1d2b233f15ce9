// Package validator checks usecase inputs against their `validate` tags and
// reports failures per field.
package validator

import (
	"sort"
	"strings"
)

type Validator interface {
	Validate(data any) error
}

// FieldErrors maps a snake_case field path such as "addresses[2].full_name"
// to a readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}

	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(fe[k])
	}
	return b.String()
}

func (fe FieldErrors) Fields() map[string]string { return fe }
