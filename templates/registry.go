// Package templates is the closed registry of per-framework source templates.
//
// Templates are keyed by (Category, Framework) enumerations rather than free
// strings, so the set of keys the planner can ask for is known up front and
// Reachable can check the registry is total over it.
package templates

import (
	"fmt"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/spec"
)

// Category is the kind of source artifact a template renders.
type Category string

const (
	CategoryComponent Category = "component"
	CategoryPage      Category = "page"
	CategoryRoute     Category = "route"
	CategoryModel     Category = "model"
	CategoryEntry     Category = "entry"
	CategoryTest      Category = "test"
)

// Categories lists every template category in planning order.
var Categories = []Category{
	CategoryComponent, CategoryPage, CategoryRoute, CategoryModel, CategoryEntry, CategoryTest,
}

// Framework is the technology a template is specialized for.
type Framework string

const (
	React     Framework = "react"
	Vue       Framework = "vue"
	Svelte    Framework = "svelte"
	Express   Framework = "express"
	Fastify   Framework = "fastify"
	Prisma    Framework = "prisma"
	Drizzle   Framework = "drizzle"
	Mongoose  Framework = "mongoose"
	Sequelize Framework = "sequelize"
)

// Frameworks lists every framework a template may target.
var Frameworks = []Framework{React, Vue, Svelte, Express, Fastify, Prisma, Drizzle, Mongoose, Sequelize}

// Key identifies one template.
type Key struct {
	Category  Category
	Framework Framework
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Category, k.Framework)
}

// Input is the per-artifact data a template renders. Exactly one of
// Component, Page, Routes or Model is set for the matching category;
// entry templates read the global Specification instead.
type Input struct {
	// Name is the artifact name in the framework's naming convention
	Name  string
	Props map[string]any

	Component *spec.Component
	Page      *spec.Page
	Routes    *spec.RouteGroup
	Model     *spec.Model

	// Part selects a named sub-template (entry templates define "main" and "app")
	Part string

	// Enrichment is design-system markup for components and pages, if any
	Enrichment string
}

// Renderer turns one artifact input plus the global Specification into file content.
// Renderers are pure: the same input always yields the same text.
type Renderer func(in Input, s *spec.Specification) (string, error)

// TemplateNotFoundError reports a (category, framework) pair with no registered template.
type TemplateNotFoundError struct {
	Category  Category
	Framework Framework
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no template registered for %s/%s", e.Category, e.Framework)
}

// Is lets errors.Is(err, errors.ErrTemplateNotFound) match.
func (e *TemplateNotFoundError) Is(target error) bool {
	return target == errors.ErrTemplateNotFound
}

// Registry maps template keys to renderers.
type Registry struct {
	renderers map[Key]Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[Key]Renderer)}
}

// Register adds or replaces the renderer for a key.
func (r *Registry) Register(category Category, framework Framework, fn Renderer) {
	r.renderers[Key{category, framework}] = fn
}

// Resolve returns the renderer for a key or *TemplateNotFoundError.
func (r *Registry) Resolve(category Category, framework Framework) (Renderer, error) {
	fn, ok := r.renderers[Key{category, framework}]
	if !ok {
		return nil, &TemplateNotFoundError{Category: category, Framework: framework}
	}
	return fn, nil
}

// Missing returns every reachable key the registry cannot resolve.
func (r *Registry) Missing() []Key {
	var missing []Key
	for _, k := range Reachable() {
		if _, ok := r.renderers[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Reachable enumerates every key the planner can request for some valid stack.
func Reachable() []Key {
	var keys []Key
	for _, fw := range spec.FrontendFrameworks {
		f := Framework(fw)
		keys = append(keys,
			Key{CategoryComponent, f},
			Key{CategoryPage, f},
			Key{CategoryEntry, f},
		)
	}
	for _, fw := range spec.BackendFrameworks {
		f := Framework(fw)
		keys = append(keys,
			Key{CategoryRoute, f},
			Key{CategoryEntry, f},
			Key{CategoryTest, f},
			// models without an ORM render as plain backend types
			Key{CategoryModel, f},
		)
	}
	for _, orm := range spec.ORMs {
		if orm == spec.NoORM {
			continue
		}
		keys = append(keys, Key{CategoryModel, Framework(orm)})
	}
	return keys
}

// FrameworkFor returns the framework that owns a category for the given stack.
// ok is false when the stack has no layer for the category.
func FrameworkFor(category Category, s *spec.Specification) (Framework, bool) {
	fe, be, db := s.Stack.Frontend, s.Stack.Backend, s.Stack.Database
	switch category {
	case CategoryComponent, CategoryPage:
		if fe == nil {
			return "", false
		}
		return Framework(fe.Framework), true
	case CategoryRoute, CategoryTest:
		if be == nil {
			return "", false
		}
		return Framework(be.Framework), true
	case CategoryModel:
		if db == nil || be == nil {
			return "", false
		}
		if db.ORM == spec.NoORM {
			return Framework(be.Framework), true
		}
		return Framework(db.ORM), true
	}
	return "", false
}

// IsFrontend reports whether f is a client framework.
func (f Framework) IsFrontend() bool {
	switch f {
	case React, Vue, Svelte:
		return true
	}
	return false
}
