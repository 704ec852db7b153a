package templates

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/teranos/forge/internal/util"
	"github.com/teranos/forge/spec"
)

// funcMap is shared by every builtin template.
var funcMap = template.FuncMap{
	"pascal": util.ToPascalCase,
	"camel":  util.ToCamelCase,
	"snake":  util.ToSnakeCase,
	"kebab":  util.ToKebabCase,
	"lower":  func(v interface{}) string { return strings.ToLower(fmt.Sprint(v)) },
	"quote":  strconv.Quote,
	"indent": indent,

	"jsLiteral":  jsLiteral,
	"vueDefault": vueDefault,
	"tsType":     tsType,

	"expressPath": expressPath,
	"hasAuth":     hasAuth,

	"fieldTS":        fieldTS,
	"prismaType":     prismaType,
	"prismaProvider": prismaProvider,
	"mongooseType":   mongooseType,
	"sequelizeType":  sequelizeType,
	"drizzleColumn":  drizzleColumn,
	"drizzleCore":    drizzleCore,
	"drizzleTable":   drizzleTable,
	"drizzleFns":     drizzleFns,
	"refTargets":     refTargets,
	"backrefs":       backrefs,
}

func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

// jsLiteral renders a decoded JSON value as a JavaScript literal.
// encoding/json sorts map keys, which keeps output deterministic.
func jsLiteral(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// vueDefault wraps object and array defaults in a factory, as Vue requires.
func vueDefault(v interface{}) (string, error) {
	lit, err := jsLiteral(v)
	if err != nil {
		return "", err
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return "() => (" + lit + ")", nil
	}
	return lit, nil
}

// tsType infers a TypeScript type from a prop's example value.
func tsType(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "unknown[]"
	case map[string]interface{}:
		return "Record<string, unknown>"
	}
	return "unknown"
}

// expressPath converts {param} placeholders to the :param form both
// express and fastify accept.
func expressPath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segs[i] = ":" + strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
		}
	}
	return strings.Join(segs, "/")
}

func hasAuth(routes []spec.Route) bool {
	for _, r := range routes {
		if r.Auth {
			return true
		}
	}
	return false
}

func fieldTS(t spec.FieldType) string {
	switch t {
	case spec.IntField, spec.FloatField:
		return "number"
	case spec.BooleanField:
		return "boolean"
	case spec.DateField, spec.DateTimeField:
		return "Date"
	case spec.JSONField:
		return "unknown"
	}
	return "string"
}

func prismaType(t spec.FieldType) string {
	switch t {
	case spec.IntField:
		return "Int"
	case spec.FloatField:
		return "Float"
	case spec.BooleanField:
		return "Boolean"
	case spec.DateField, spec.DateTimeField:
		return "DateTime"
	case spec.JSONField:
		return "Json"
	}
	return "String"
}

// prismaProvider is also the drizzle-kit dialect name.
func prismaProvider(engine spec.DatabaseType) string {
	if engine == spec.Postgres {
		return "postgresql"
	}
	return string(engine)
}

func mongooseType(t spec.FieldType) string {
	switch {
	case t.IsReference():
		return "Schema.Types.ObjectId"
	case t == spec.IntField, t == spec.FloatField:
		return "Number"
	case t == spec.BooleanField:
		return "Boolean"
	case t == spec.DateField, t == spec.DateTimeField:
		return "Date"
	case t == spec.JSONField:
		return "Schema.Types.Mixed"
	}
	return "String"
}

func sequelizeType(t spec.FieldType) string {
	switch {
	case t.IsReference(), t == spec.IntField:
		return "DataTypes.INTEGER"
	case t == spec.TextField:
		return "DataTypes.TEXT"
	case t == spec.FloatField:
		return "DataTypes.FLOAT"
	case t == spec.BooleanField:
		return "DataTypes.BOOLEAN"
	case t == spec.DateField:
		return "DataTypes.DATEONLY"
	case t == spec.DateTimeField:
		return "DataTypes.DATE"
	case t == spec.JSONField:
		return "DataTypes.JSON"
	case t == spec.UUIDField:
		return "DataTypes.UUID"
	}
	return "DataTypes.STRING"
}

var drizzleCores = map[spec.DatabaseType]string{
	spec.SQLite:   "sqlite-core",
	spec.Postgres: "pg-core",
	spec.MySQL:    "mysql-core",
}

var drizzleTables = map[spec.DatabaseType]string{
	spec.SQLite:   "sqliteTable",
	spec.Postgres: "pgTable",
	spec.MySQL:    "mysqlTable",
}

func drizzleCore(engine spec.DatabaseType) string  { return drizzleCores[engine] }
func drizzleTable(engine spec.DatabaseType) string { return drizzleTables[engine] }

// drizzleBuilder returns the column builder function and its call for one field type.
func drizzleBuilder(engine spec.DatabaseType, t spec.FieldType, column string) (fn, call string) {
	q := strconv.Quote(column)
	switch engine {
	case spec.SQLite:
		switch {
		case t.IsReference(), t == spec.IntField:
			return "integer", "integer(" + q + ")"
		case t == spec.FloatField:
			return "real", "real(" + q + ")"
		case t == spec.BooleanField:
			return "integer", "integer(" + q + ", { mode: 'boolean' })"
		case t == spec.DateField, t == spec.DateTimeField:
			return "integer", "integer(" + q + ", { mode: 'timestamp' })"
		case t == spec.JSONField:
			return "text", "text(" + q + ", { mode: 'json' })"
		}
		return "text", "text(" + q + ")"
	case spec.Postgres:
		switch {
		case t.IsReference(), t == spec.IntField:
			return "integer", "integer(" + q + ")"
		case t == spec.FloatField:
			return "doublePrecision", "doublePrecision(" + q + ")"
		case t == spec.BooleanField:
			return "boolean", "boolean(" + q + ")"
		case t == spec.DateField:
			return "date", "date(" + q + ")"
		case t == spec.DateTimeField:
			return "timestamp", "timestamp(" + q + ")"
		case t == spec.JSONField:
			return "jsonb", "jsonb(" + q + ")"
		case t == spec.UUIDField:
			return "uuid", "uuid(" + q + ")"
		}
		return "text", "text(" + q + ")"
	default:
		switch {
		case t.IsReference(), t == spec.IntField:
			return "int", "int(" + q + ")"
		case t == spec.FloatField:
			return "double", "double(" + q + ")"
		case t == spec.BooleanField:
			return "boolean", "boolean(" + q + ")"
		case t == spec.DateField:
			return "date", "date(" + q + ")"
		case t == spec.DateTimeField:
			return "datetime", "datetime(" + q + ")"
		case t == spec.JSONField:
			return "json", "json(" + q + ")"
		case t == spec.TextField:
			return "text", "text(" + q + ")"
		case t == spec.UUIDField:
			return "varchar", "varchar(" + q + ", { length: 36 })"
		}
		return "varchar", "varchar(" + q + ", { length: 255 })"
	}
}

// drizzleColumn renders one field as a drizzle column expression.
func drizzleColumn(engine spec.DatabaseType, f spec.Field) string {
	column := util.ToSnakeCase(f.Name)
	if f.Type.IsReference() {
		column += "_id"
	}
	_, call := drizzleBuilder(engine, f.Type, column)
	if f.Required {
		call += ".notNull()"
	}
	if f.Unique {
		call += ".unique()"
	}
	if target := f.Type.Target(); target != "" {
		call += fmt.Sprintf(".references(() => %sTable.id)", util.ToCamelCase(target))
	}
	return call
}

// drizzleFns lists the column builders a model needs, sorted for a stable import line.
func drizzleFns(engine spec.DatabaseType, m spec.Model) string {
	set := map[string]bool{}
	switch engine {
	case spec.SQLite:
		set["integer"] = true
	default:
		set["serial"] = true
		set["timestamp"] = engine == spec.Postgres
		set["datetime"] = engine == spec.MySQL
	}
	set[drizzleTables[engine]] = true
	for _, f := range m.Fields {
		fn, _ := drizzleBuilder(engine, f.Type, "")
		set[fn] = true
	}
	var fns []string
	for fn, ok := range set {
		if ok {
			fns = append(fns, fn)
		}
	}
	sort.Strings(fns)
	return strings.Join(fns, ", ")
}

// refTargets lists the distinct models a model references, in field order.
// Names are PascalCase, matching model file and type names.
func refTargets(m spec.Model) []string {
	var targets []string
	seen := map[string]bool{}
	for _, f := range m.Fields {
		t := f.Type.Target()
		if t == "" {
			continue
		}
		t = util.ToPascalCase(t)
		if t != util.ToPascalCase(m.Name) && !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}
	return targets
}

// Backref is the inverse side of a reference field, needed by relation-aware ORMs.
type Backref struct {
	Model string
	Field string
	// Relation names the pair so multiple references between two models stay unambiguous
	Relation string
	// Name is the generated inverse field name
	Name string
}

// backrefs lists every field across the Specification that references target.
func backrefs(s *spec.Specification, target string) []Backref {
	var refs []Backref
	for _, m := range s.Database.Models {
		for _, f := range m.Fields {
			if t := f.Type.Target(); t == "" || util.ToPascalCase(t) != target {
				continue
			}
			rel := util.ToPascalCase(m.Name) + "_" + f.Name
			refs = append(refs, Backref{
				Model:    util.ToPascalCase(m.Name),
				Field:    f.Name,
				Relation: rel,
				Name:     util.ToCamelCase(rel),
			})
		}
	}
	return refs
}
