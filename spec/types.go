// Package spec defines the declarative application Specification that forge
// renders into a project tree, and the loader that validates it.
//
// A Specification is immutable once Load returns: defaults are applied during
// loading and nothing downstream (planner, templates, filesync) mutates it.
package spec

import (
	"strings"
)

// Specification is the root of a validated application description.
type Specification struct {
	App        App         `json:"app"`
	Stack      Stack       `json:"stack"`
	Features   Features    `json:"features"`
	Components []Component `json:"components"`
	Pages      []Page      `json:"pages"`
	Routes     []Route     `json:"routes"`
	Database   Database    `json:"database"`
	Styling    Styling     `json:"styling"`
}

// App holds project metadata.
type App struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Stack groups the per-layer technology choices. Absent layers are not generated.
type Stack struct {
	Frontend *Frontend      `json:"frontend,omitempty"`
	Backend  *Backend       `json:"backend,omitempty"`
	Database *DatabaseStack `json:"database,omitempty"`
}

// Frontend is the client layer choice set.
type Frontend struct {
	Framework FrontendFramework `json:"framework"`
	Language  Language          `json:"language"`
	Styling   StylingKind       `json:"styling"`
	Router    Router            `json:"router"`
	State     StateLib          `json:"state"`
}

// Backend is the server layer choice set.
type Backend struct {
	Framework  BackendFramework `json:"framework"`
	Language   Language         `json:"language"`
	API        APIStyle         `json:"api"`
	Validation ValidationLib    `json:"validation"`
}

// DatabaseStack is the persistence layer choice set.
type DatabaseStack struct {
	Type DatabaseType `json:"type"`
	ORM  ORM          `json:"orm"`
}

// Features toggles cross-cutting behavior.
type Features struct {
	Auth bool `json:"auth"`
}

// Component declares one UI component.
type Component struct {
	Name  string         `json:"name"`
	Type  ComponentType  `json:"type"`
	Props map[string]any `json:"props,omitempty"`
}

// Page declares one routed UI page.
type Page struct {
	Name       string         `json:"name"`
	Path       string         `json:"path"`
	Title      string         `json:"title"`
	Components []string       `json:"components,omitempty"`
	Props      map[string]any `json:"props,omitempty"`
}

// Route declares one backend endpoint. Routes sharing a resource render into one router file.
type Route struct {
	Name    string         `json:"name,omitempty"`
	Path    string         `json:"path"`
	Method  HTTPMethod     `json:"method"`
	Handler string         `json:"handler"`
	Auth    bool           `json:"auth"`
	Props   map[string]any `json:"props,omitempty"`
}

// Resource returns the router group this route belongs to: the explicit name,
// else the first static path segment ("/tasks/:id" -> "tasks", "/" -> "root").
func (r Route) Resource() string {
	if r.Name != "" {
		return r.Name
	}
	for _, seg := range strings.Split(r.Path, "/") {
		if seg == "" || strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "{") || seg == "*" {
			continue
		}
		return seg
	}
	return "root"
}

// Database holds the data models.
type Database struct {
	Models []Model `json:"models"`
}

// Model is one persisted entity.
type Model struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Field is one model attribute.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Unique   bool      `json:"unique"`
}

// Styling is consumed only by styling templates.
type Styling struct {
	Theme   string            `json:"theme,omitempty"`
	Palette map[string]string `json:"palette,omitempty"`
}

// TypeScript reports whether any declared layer uses TypeScript.
func (s *Specification) TypeScript() bool {
	if s.Stack.Frontend != nil && s.Stack.Frontend.Language == TypeScript {
		return true
	}
	return s.Stack.Backend != nil && s.Stack.Backend.Language == TypeScript
}

// Model returns the model with the given name.
func (s *Specification) Model(name string) (Model, bool) {
	for _, m := range s.Database.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// RouteGroup is the set of routes rendered into one router artifact.
type RouteGroup struct {
	Resource string
	Routes   []Route
}

// RouteGroups groups routes by resource, ordered by first appearance.
func (s *Specification) RouteGroups() []RouteGroup {
	var groups []RouteGroup
	index := make(map[string]int)
	for _, r := range s.Routes {
		res := r.Resource()
		i, ok := index[res]
		if !ok {
			i = len(groups)
			index[res] = i
			groups = append(groups, RouteGroup{Resource: res})
		}
		groups[i].Routes = append(groups[i].Routes, r)
	}
	return groups
}
