package spec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/forge/errors"
)

const todoSpec = `{
  "app": {"name": "todo"},
  "stack": {
    "frontend": {"framework": "react", "language": "typescript"},
    "backend": {"framework": "express", "language": "typescript"},
    "database": {"type": "sqlite"}
  },
  "components": [],
  "pages": [],
  "routes": []
}`

func TestLoadAppliesDefaults(t *testing.T) {
	s, err := Load([]byte(todoSpec))
	require.NoError(t, err)

	assert.Equal(t, "todo", s.App.Name)
	assert.Equal(t, DefaultVersion, s.App.Version)
	require.NotNil(t, s.Stack.Frontend)
	assert.Equal(t, PlainCSS, s.Stack.Frontend.Styling)
	assert.Equal(t, NoRouter, s.Stack.Frontend.Router)
	assert.Equal(t, NoState, s.Stack.Frontend.State)
	require.NotNil(t, s.Stack.Backend)
	assert.Equal(t, REST, s.Stack.Backend.API)
	assert.Equal(t, NoValidation, s.Stack.Backend.Validation)
	require.NotNil(t, s.Stack.Database)
	assert.Equal(t, Prisma, s.Stack.Database.ORM)
	assert.True(t, s.TypeScript())
}

func TestLoadDefaultsPerEntry(t *testing.T) {
	s, err := Load([]byte(`{
	  "app": {"name": "shop", "version": "1.2.3"},
	  "stack": {"frontend": {"framework": "vue", "language": "javascript"}, "backend": {"framework": "fastify", "language": "javascript"},
	            "database": {"type": "mongodb"}},
	  "components": [{"name": "ProductCard"}],
	  "pages": [{"name": "ProductList"}, {"name": "Checkout", "path": "/pay", "title": "Pay"}],
	  "routes": [{"path": "/products", "method": "get", "handler": "listProducts"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", s.App.Version)
	assert.Equal(t, UIComponent, s.Components[0].Type)
	assert.Equal(t, "/product-list", s.Pages[0].Path)
	assert.Equal(t, "ProductList", s.Pages[0].Title)
	assert.Equal(t, "/pay", s.Pages[1].Path)
	assert.Equal(t, VueRouter, s.Stack.Frontend.Router, "two pages default to the framework router")
	assert.Equal(t, GET, s.Routes[0].Method)
	assert.Equal(t, Mongoose, s.Stack.Database.ORM)
	assert.False(t, s.TypeScript())
}

func TestLoadSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"not an object", `[1,2]`, ""},
		{"missing app", `{"stack": {"backend": {"framework": "express"}}}`, "app"},
		{"missing stack", `{"app": {"name": "x"}}`, "stack"},
		{"null stack", `{"app": {"name": "x"}, "stack": null}`, "stack"},
		{"unknown top-level key", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "extra": 1}`, "extra"},
		{"wrong type", `{"app": {"name": 7}, "stack": {"backend": {"framework": "express"}}}`, "app.name"},
		{"empty app name", `{"app": {"name": ""}, "stack": {"backend": {"framework": "express"}}}`, "app.name"},
		{"uppercase app name", `{"app": {"name": "Todo"}, "stack": {"backend": {"framework": "express"}}}`, "app.name"},
		{"bad version", `{"app": {"name": "x", "version": "one"}, "stack": {"backend": {"framework": "express"}}}`, "app.version"},
		{"empty stack", `{"app": {"name": "x"}, "stack": {}}`, "stack"},
		{"unknown frontend framework", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "angular"}}}`, "stack.frontend.framework"},
		{"unknown language", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react", "language": "coffeescript"}}}`, "stack.frontend.language"},
		{"router mismatch", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "vue", "router": "react-router"}}}`, "stack.frontend.router"},
		{"state mismatch", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react", "state": "pinia"}}}`, "stack.frontend.state"},
		{"unknown backend api", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express", "api": "soap"}}}`, "stack.backend.api"},
		{"database without backend", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react"}, "database": {"type": "sqlite"}}}`, "stack.database"},
		{"orm engine mismatch", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}, "database": {"type": "postgres", "orm": "mongoose"}}}`, "stack.database.orm"},
		{"component without frontend", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "components": [{"name": "Card"}]}`, "components"},
		{"path-unsafe component name", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react"}}, "components": [{"name": "../Card"}]}`, "components[0].name"},
		{"duplicate component", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react"}}, "components": [{"name": "Card"}, {"name": "Card"}]}`, "components[1].name"},
		{"unknown component type", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react"}}, "components": [{"name": "Card", "type": "widget"}]}`, "components[0].type"},
		{"page references unknown component", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react"}}, "pages": [{"name": "Home", "components": ["Nav"]}]}`, "pages[0].components[0]"},
		{"page path traversal", `{"app": {"name": "x"}, "stack": {"frontend": {"framework": "react"}}, "pages": [{"name": "Home", "path": "/a/../b"}]}`, "pages[0].path"},
		{"route without method", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/tasks", "handler": "list"}]}`, "routes[0].method"},
		{"route bad method", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/tasks", "method": "TRACE", "handler": "list"}]}`, "routes[0].method"},
		{"route bad handler", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/tasks", "method": "GET", "handler": "list-tasks"}]}`, "routes[0].handler"},
		{"route relative path", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "tasks", "method": "GET", "handler": "list"}]}`, "routes[0].path"},
		{"route auth without feature", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/me", "method": "GET", "handler": "me", "auth": true}]}`, "routes[0].auth"},
		{"route resource not a name", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/1", "method": "GET", "handler": "list"}]}`, "routes[0].path"},
		{"route reserved handler", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/tasks/:id", "method": "DELETE", "handler": "delete"}]}`, "routes[0].handler"},
		{"route handler shadows import", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/tasks", "method": "GET", "handler": "Router"}]}`, "routes[0].handler"},
		{"duplicate handler in resource", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "routes": [{"path": "/tasks", "method": "GET", "handler": "list"}, {"path": "/users", "method": "GET", "handler": "list"}, {"path": "/tasks/:id", "method": "GET", "handler": "list"}]}`, "routes[2].handler"},
		{"model without database", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}}, "database": {"models": [{"name": "Task", "fields": [{"name": "title", "type": "string"}]}]}}`, "database.models"},
		{"unknown field type", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}, "database": {"type": "sqlite"}}, "database": {"models": [{"name": "Task", "fields": [{"name": "title", "type": "varchar"}]}]}}`, "database.models[0].fields[0].type"},
		{"dangling reference", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}, "database": {"type": "sqlite"}}, "database": {"models": [{"name": "Task", "fields": [{"name": "owner", "type": "ref:User"}]}]}}`, "database.models[0].fields[0].type"},
		{"model without fields", `{"app": {"name": "x"}, "stack": {"backend": {"framework": "express"}, "database": {"type": "sqlite"}}, "database": {"models": [{"name": "Task", "fields": []}]}}`, "database.models[0].fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, s)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "expected *SchemaError, got %T: %v", err, err)
			assert.Equal(t, tt.field, schemaErr.Field)
			assert.True(t, errors.Is(err, errors.ErrInvalidSpec))
			assert.True(t, errors.IsPlanningError(err))
		})
	}
}

func TestHandlersAreScopedToTheirResource(t *testing.T) {
	s, err := Load([]byte(`{
	  "app": {"name": "shop"},
	  "stack": {"backend": {"framework": "express"}},
	  "routes": [
	    {"path": "/tasks", "method": "GET", "handler": "list"},
	    {"path": "/users", "method": "GET", "handler": "list"},
	    {"path": "/tasks/:id", "method": "GET", "handler": "show"}
	  ]
	}`))
	require.NoError(t, err)
	require.Len(t, s.RouteGroups(), 2)

	_, err = Load([]byte(`{
	  "app": {"name": "shop"},
	  "stack": {"backend": {"framework": "express"}},
	  "routes": [
	    {"path": "/tasks", "method": "GET", "handler": "list"},
	    {"path": "/tasks/:id", "method": "GET", "handler": "list"}
	  ]
	}`))
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "routes[1].handler", schemaErr.Field)
	assert.Contains(t, schemaErr.Reason, "routes[0]")
}

func TestLoadAcceptsReferences(t *testing.T) {
	s, err := Load([]byte(`{
	  "app": {"name": "blog"},
	  "stack": {"backend": {"framework": "express"}, "database": {"type": "postgres", "orm": "drizzle"}},
	  "database": {"models": [
	    {"name": "Post", "fields": [{"name": "author", "type": "ref:User", "required": true}]},
	    {"name": "User", "fields": [{"name": "email", "type": "string", "unique": true}]}
	  ]}
	}`))
	require.NoError(t, err)

	author := s.Database.Models[0].Fields[0]
	assert.True(t, author.Type.IsReference())
	assert.Equal(t, "User", author.Type.Target())
	_, ok := s.Model("User")
	assert.True(t, ok)
}

func TestRouteResource(t *testing.T) {
	tests := []struct {
		route Route
		want  string
	}{
		{Route{Path: "/tasks"}, "tasks"},
		{Route{Path: "/tasks/:id"}, "tasks"},
		{Route{Path: "/:org/projects"}, "projects"},
		{Route{Path: "/"}, "root"},
		{Route{Path: "/tasks", Name: "todo"}, "todo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.route.Resource(), tt.route.Path)
	}
}

func TestRouteGroupsPreserveOrder(t *testing.T) {
	s := &Specification{Routes: []Route{
		{Path: "/tasks", Method: GET, Handler: "listTasks"},
		{Path: "/users", Method: GET, Handler: "listUsers"},
		{Path: "/tasks/:id", Method: DELETE, Handler: "deleteTask"},
	}}

	groups := s.RouteGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, "tasks", groups[0].Resource)
	assert.Len(t, groups[0].Routes, 2)
	assert.Equal(t, "deleteTask", groups[0].Routes[1].Handler)
	assert.Equal(t, "users", groups[1].Resource)
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"todo.json": todoSpec,
		"todo.yaml": `
app:
  name: todo
stack:
  frontend: {framework: react, language: typescript}
  backend: {framework: express, language: typescript}
  database: {type: sqlite}
routes:
  - {path: /tasks, method: GET, handler: listTasks}
`,
		"todo.toml": `
[app]
name = "todo"

[stack.frontend]
framework = "react"
language = "typescript"

[stack.backend]
framework = "express"
language = "typescript"

[stack.database]
type = "sqlite"

[[routes]]
path = "/tasks"
method = "GET"
handler = "listTasks"
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			s, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "todo", s.App.Name)
			assert.Equal(t, React, s.Stack.Frontend.Framework)
			assert.Equal(t, SQLite, s.Stack.Database.Type)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrInvalidSpec))
}

func TestFetchLocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.json")
	require.NoError(t, os.WriteFile(path, []byte(todoSpec), 0644))

	assert.False(t, IsRemote(path))
	s, err := Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "todo", s.App.Name)
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "spec.yaml", documentName("https://example.com/specs/todo.yaml"))
	assert.Equal(t, "spec.toml", documentName("git::https://github.com/acme/specs.git//apps/todo.toml?ref=main"))
	assert.Equal(t, "spec.json", documentName("https://example.com/api/spec"))
}
