package spec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// appNameRe follows npm package naming: the app name becomes package.json "name"
	appNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

	// identRe admits names that become file names and source identifiers
	identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

	// handlerRe is a JavaScript function identifier
	handlerRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

	// segmentRe admits static segments and :param / {param} / * placeholders
	segmentRe = regexp.MustCompile(`^(:[A-Za-z_][A-Za-z0-9_]*\??|\{[A-Za-z_][A-Za-z0-9_]*\}|\*|[A-Za-z0-9._~-]+)$`)
)

const maxAppName = 214

// reservedHandlers cannot name a generated route function: JavaScript
// reserved words, and bindings every route module already imports.
var reservedHandlers = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true, "else": true,
	"enum": true, "export": true, "extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "implements": true, "import": true, "in": true, "instanceof": true,
	"interface": true, "let": true, "new": true, "null": true, "package": true, "private": true,
	"protected": true, "public": true, "return": true, "static": true, "super": true, "switch": true,
	"this": true, "throw": true, "true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true,

	"Router": true, "Request": true, "Response": true, "requireAuth": true,
	"FastifyInstance": true, "FastifyReply": true, "FastifyRequest": true,
}

// Validate checks every rule a loaded Specification must satisfy and returns
// the first violation as *SchemaError. Checks run in document order so the
// reported field is stable across runs.
func (s *Specification) Validate() error {
	checks := []func() error{
		s.validateApp,
		s.validateStack,
		s.validateComponents,
		s.validatePages,
		s.validateRoutes,
		s.validateModels,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Specification) validateApp() error {
	name := s.App.Name
	switch {
	case name == "":
		return schemaErr("app.name", "required")
	case len(name) > maxAppName:
		return schemaErr("app.name", "must be at most %d characters", maxAppName)
	case !appNameRe.MatchString(name):
		return schemaErr("app.name", "%q must be lowercase letters, digits, '.', '_' or '-'", name)
	}
	if _, err := semver.StrictNewVersion(s.App.Version); err != nil {
		return schemaErr("app.version", "%q is not a semantic version (MAJOR.MINOR.PATCH)", s.App.Version)
	}
	return nil
}

func (s *Specification) validateStack() error {
	st := s.Stack
	if st.Frontend == nil && st.Backend == nil {
		return schemaErr("stack", "must declare at least one of frontend, backend")
	}

	if fe := st.Frontend; fe != nil {
		if err := oneOf("stack.frontend.framework", fe.Framework, FrontendFrameworks); err != nil {
			return err
		}
		if err := oneOf("stack.frontend.language", fe.Language, languages); err != nil {
			return err
		}
		if err := oneOf("stack.frontend.styling", fe.Styling, stylingKinds); err != nil {
			return err
		}
		if err := oneOf("stack.frontend.router", fe.Router, routers); err != nil {
			return err
		}
		if owner, ok := routerFrameworks[fe.Router]; ok && owner != fe.Framework {
			return schemaErr("stack.frontend.router", "%s requires framework %s, got %s", fe.Router, owner, fe.Framework)
		}
		if err := oneOf("stack.frontend.state", fe.State, stateLibs); err != nil {
			return err
		}
		if owner, ok := stateFrameworks[fe.State]; ok && owner != fe.Framework {
			return schemaErr("stack.frontend.state", "%s requires framework %s, got %s", fe.State, owner, fe.Framework)
		}
	}

	if be := st.Backend; be != nil {
		if err := oneOf("stack.backend.framework", be.Framework, BackendFrameworks); err != nil {
			return err
		}
		if err := oneOf("stack.backend.language", be.Language, languages); err != nil {
			return err
		}
		if err := oneOf("stack.backend.api", be.API, apiStyles); err != nil {
			return err
		}
		if err := oneOf("stack.backend.validation", be.Validation, validationLibs); err != nil {
			return err
		}
	}

	if db := st.Database; db != nil {
		if st.Backend == nil {
			return schemaErr("stack.database", "requires stack.backend")
		}
		if err := oneOf("stack.database.type", db.Type, databaseTypes); err != nil {
			return err
		}
		if err := oneOf("stack.database.orm", db.ORM, ORMs); err != nil {
			return err
		}
		if !ORMSupports(db.ORM, db.Type) {
			return schemaErr("stack.database.orm", "%s does not support %s (supported: %s)", db.ORM, db.Type, join(ormEngines[db.ORM]))
		}
	}
	return nil
}

func (s *Specification) validateComponents() error {
	if len(s.Components) > 0 && s.Stack.Frontend == nil {
		return schemaErr("components", "requires stack.frontend")
	}
	seen := make(map[string]int)
	for i, c := range s.Components {
		field := fmt.Sprintf("components[%d]", i)
		if err := checkName(field+".name", c.Name); err != nil {
			return err
		}
		if prev, dup := seen[c.Name]; dup {
			return schemaErr(field+".name", "duplicate of components[%d]", prev)
		}
		seen[c.Name] = i
		if err := oneOf(field+".type", c.Type, componentTypes); err != nil {
			return err
		}
	}
	return nil
}

func (s *Specification) validatePages() error {
	if len(s.Pages) > 0 && s.Stack.Frontend == nil {
		return schemaErr("pages", "requires stack.frontend")
	}
	components := make(map[string]bool, len(s.Components))
	for _, c := range s.Components {
		components[c.Name] = true
	}
	seen := make(map[string]int)
	for i, p := range s.Pages {
		field := fmt.Sprintf("pages[%d]", i)
		if err := checkName(field+".name", p.Name); err != nil {
			return err
		}
		if prev, dup := seen[p.Name]; dup {
			return schemaErr(field+".name", "duplicate of pages[%d]", prev)
		}
		seen[p.Name] = i
		if err := checkPath(field+".path", p.Path); err != nil {
			return err
		}
		for j, ref := range p.Components {
			if !components[ref] {
				return schemaErr(fmt.Sprintf("%s.components[%d]", field, j), "unknown component %q", ref)
			}
		}
	}
	return nil
}

func (s *Specification) validateRoutes() error {
	if len(s.Routes) > 0 && s.Stack.Backend == nil {
		return schemaErr("routes", "requires stack.backend")
	}
	// handlers become functions of one module per resource
	handlers := make(map[string]map[string]int)
	for i, r := range s.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if r.Name != "" {
			if err := checkName(field+".name", r.Name); err != nil {
				return err
			}
		}
		if err := checkPath(field+".path", r.Path); err != nil {
			return err
		}
		if r.Method == "" {
			return schemaErr(field+".method", "required")
		}
		if err := oneOf(field+".method", r.Method, httpMethods); err != nil {
			return err
		}
		if r.Handler == "" {
			return schemaErr(field+".handler", "required")
		}
		if !handlerRe.MatchString(r.Handler) {
			return schemaErr(field+".handler", "%q is not a valid function name", r.Handler)
		}
		if reservedHandlers[r.Handler] {
			return schemaErr(field+".handler", "%q is reserved in the generated route module", r.Handler)
		}
		if r.Auth && !s.Features.Auth {
			return schemaErr(field+".auth", "requires features.auth")
		}
		res := r.Resource()
		if !identRe.MatchString(res) {
			return schemaErr(field+".path", "cannot derive a file name from %q; set routes[%d].name", r.Path, i)
		}
		if handlers[res] == nil {
			handlers[res] = make(map[string]int)
		}
		if j, dup := handlers[res][r.Handler]; dup {
			return schemaErr(field+".handler", "%q is already the handler of routes[%d] in resource %q", r.Handler, j, res)
		}
		handlers[res][r.Handler] = i
	}
	return nil
}

func (s *Specification) validateModels() error {
	if len(s.Database.Models) > 0 && s.Stack.Database == nil {
		return schemaErr("database.models", "requires stack.database")
	}
	declared := make(map[string]int, len(s.Database.Models))
	for i, m := range s.Database.Models {
		field := fmt.Sprintf("database.models[%d]", i)
		if err := checkName(field+".name", m.Name); err != nil {
			return err
		}
		if prev, dup := declared[m.Name]; dup {
			return schemaErr(field+".name", "duplicate of database.models[%d]", prev)
		}
		declared[m.Name] = i
	}
	for i, m := range s.Database.Models {
		field := fmt.Sprintf("database.models[%d]", i)
		if len(m.Fields) == 0 {
			return schemaErr(field+".fields", "must declare at least one field")
		}
		names := make(map[string]bool, len(m.Fields))
		for j, f := range m.Fields {
			ff := fmt.Sprintf("%s.fields[%d]", field, j)
			if err := checkName(ff+".name", f.Name); err != nil {
				return err
			}
			if names[f.Name] {
				return schemaErr(ff+".name", "duplicate field %q", f.Name)
			}
			names[f.Name] = true
			switch {
			case f.Type.IsPrimitive():
			case f.Type.IsReference():
				if _, ok := declared[f.Type.Target()]; !ok {
					return schemaErr(ff+".type", "references undeclared model %q", f.Type.Target())
				}
			default:
				return schemaErr(ff+".type", "unknown type %q (expected one of %s, or ref:<Model>)", f.Type, join(primitiveFields))
			}
		}
	}
	return nil
}

func checkName(field, name string) error {
	if name == "" {
		return schemaErr(field, "required")
	}
	if !identRe.MatchString(name) {
		return schemaErr(field, "%q must start with a letter and contain only letters, digits, '_' or '-'", name)
	}
	return nil
}

func checkPath(field, path string) error {
	if !strings.HasPrefix(path, "/") {
		return schemaErr(field, "%q must start with '/'", path)
	}
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" && path != "/" {
			return schemaErr(field, "%q contains an empty segment", path)
		}
		if seg == "" {
			continue
		}
		if seg == "." || seg == ".." || !segmentRe.MatchString(seg) {
			return schemaErr(field, "%q contains invalid segment %q", path, seg)
		}
	}
	return nil
}

func oneOf[T ~string](field string, v T, allowed []T) error {
	if v == "" {
		return schemaErr(field, "required")
	}
	if !contains(allowed, v) {
		return schemaErr(field, "unknown value %q (expected one of %s)", v, join(allowed))
	}
	return nil
}
