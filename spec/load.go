package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/internal/util"
)

// DefaultVersion is applied when app.version is omitted.
const DefaultVersion = "0.1.0"

// SchemaError reports a Specification that failed validation. Field is the
// dotted path of the offending value, e.g. "stack.frontend.framework" or
// "components[2].name".
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "invalid specification: " + e.Reason
	}
	return fmt.Sprintf("invalid specification: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, errors.ErrInvalidSpec) match schema failures.
func (e *SchemaError) Is(target error) bool {
	return target == errors.ErrInvalidSpec
}

func schemaErr(field, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Load parses and validates a JSON Specification. Unknown keys are rejected,
// defaults are filled in, and the first violation is returned as *SchemaError.
func Load(raw []byte) (*Specification, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, schemaErr("", "document is not a JSON object: %v", err)
	}
	for _, key := range []string{"app", "stack"} {
		if v, ok := top[key]; !ok || string(bytes.TrimSpace(v)) == "null" {
			return nil, schemaErr(key, "required")
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var s Specification
	if err := dec.Decode(&s); err != nil {
		return nil, decodeError(err)
	}
	if dec.More() {
		return nil, schemaErr("", "trailing data after document")
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// decodeError turns encoding/json failures into field-path schema errors.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return schemaErr(typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return schemaErr("", "malformed JSON at offset %d: %v", syntaxErr.Offset, syntaxErr)
	}
	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "json: unknown field "); ok {
		return schemaErr(strings.Trim(name, `"`), "unknown field")
	}
	return schemaErr("", "%s", msg)
}

// applyDefaults fills omitted optional choices. It runs once inside Load,
// before the Specification is handed to any caller.
func (s *Specification) applyDefaults() {
	if s.App.Version == "" {
		s.App.Version = DefaultVersion
	}

	if fe := s.Stack.Frontend; fe != nil {
		if fe.Language == "" {
			fe.Language = TypeScript
		}
		if fe.Styling == "" {
			fe.Styling = PlainCSS
		}
		if fe.Router == "" {
			fe.Router = defaultRouter(fe.Framework, len(s.Pages))
		}
		if fe.State == "" {
			fe.State = NoState
		}
	}

	if be := s.Stack.Backend; be != nil {
		if be.Language == "" {
			be.Language = TypeScript
		}
		if be.API == "" {
			be.API = REST
		}
		if be.Validation == "" {
			be.Validation = NoValidation
		}
	}

	if db := s.Stack.Database; db != nil && db.ORM == "" {
		if db.Type == MongoDB {
			db.ORM = Mongoose
		} else {
			db.ORM = Prisma
		}
	}

	for i := range s.Components {
		if s.Components[i].Type == "" {
			s.Components[i].Type = UIComponent
		}
	}
	for i := range s.Pages {
		p := &s.Pages[i]
		if p.Path == "" {
			p.Path = "/" + util.ToKebabCase(p.Name)
		}
		if p.Title == "" {
			p.Title = p.Name
		}
	}
	for i := range s.Routes {
		s.Routes[i].Method = HTTPMethod(strings.ToUpper(string(s.Routes[i].Method)))
	}
}

// defaultRouter picks the framework's router when the app has more than one page.
func defaultRouter(fw FrontendFramework, pages int) Router {
	if pages < 2 {
		return NoRouter
	}
	switch fw {
	case React:
		return ReactRouter
	case Vue:
		return VueRouter
	case Svelte:
		return SvelteRouting
	}
	return NoRouter
}
