package spec

import "strings"

// FrontendFramework is a closed set of client frameworks
type FrontendFramework string

const (
	React  FrontendFramework = "react"
	Vue    FrontendFramework = "vue"
	Svelte FrontendFramework = "svelte"
)

// FrontendFrameworks lists every supported client framework
var FrontendFrameworks = []FrontendFramework{React, Vue, Svelte}

// Language is the source dialect of a stack layer
type Language string

const (
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
)

var languages = []Language{TypeScript, JavaScript}

// StylingKind selects the stylesheet toolchain
type StylingKind string

const (
	PlainCSS StylingKind = "css"
	Tailwind StylingKind = "tailwind"
	SCSS     StylingKind = "scss"
)

var stylingKinds = []StylingKind{PlainCSS, Tailwind, SCSS}

// Router selects the client-side router
type Router string

const (
	NoRouter      Router = "none"
	ReactRouter   Router = "react-router"
	VueRouter     Router = "vue-router"
	SvelteRouting Router = "svelte-routing"
)

var routers = []Router{NoRouter, ReactRouter, VueRouter, SvelteRouting}

// routerFrameworks maps each router to the framework it works with
var routerFrameworks = map[Router]FrontendFramework{
	ReactRouter:   React,
	VueRouter:     Vue,
	SvelteRouting: Svelte,
}

// StateLib selects the client state-management library
type StateLib string

const (
	NoState     StateLib = "none"
	Zustand     StateLib = "zustand"
	Redux       StateLib = "redux"
	Pinia       StateLib = "pinia"
	SvelteStore StateLib = "svelte-store"
)

var stateLibs = []StateLib{NoState, Zustand, Redux, Pinia, SvelteStore}

var stateFrameworks = map[StateLib]FrontendFramework{
	Zustand:     React,
	Redux:       React,
	Pinia:       Vue,
	SvelteStore: Svelte,
}

// BackendFramework is a closed set of server frameworks
type BackendFramework string

const (
	Express BackendFramework = "express"
	Fastify BackendFramework = "fastify"
)

// BackendFrameworks lists every supported server framework
var BackendFrameworks = []BackendFramework{Express, Fastify}

// APIStyle selects how routes are exposed
type APIStyle string

const (
	REST    APIStyle = "rest"
	GraphQL APIStyle = "graphql"
)

var apiStyles = []APIStyle{REST, GraphQL}

// ValidationLib selects the request validation library
type ValidationLib string

const (
	NoValidation ValidationLib = "none"
	Zod          ValidationLib = "zod"
	Joi          ValidationLib = "joi"
	Yup          ValidationLib = "yup"
)

var validationLibs = []ValidationLib{NoValidation, Zod, Joi, Yup}

// DatabaseType is the storage engine
type DatabaseType string

const (
	SQLite   DatabaseType = "sqlite"
	Postgres DatabaseType = "postgres"
	MySQL    DatabaseType = "mysql"
	MongoDB  DatabaseType = "mongodb"
)

var databaseTypes = []DatabaseType{SQLite, Postgres, MySQL, MongoDB}

// ORM is the data-access library
type ORM string

const (
	NoORM     ORM = "none"
	Prisma    ORM = "prisma"
	Drizzle   ORM = "drizzle"
	Mongoose  ORM = "mongoose"
	Sequelize ORM = "sequelize"
)

// ORMs lists every supported ORM, including none
var ORMs = []ORM{NoORM, Prisma, Drizzle, Mongoose, Sequelize}

// ormEngines lists the engines each ORM supports
var ormEngines = map[ORM][]DatabaseType{
	NoORM:     databaseTypes,
	Prisma:    {SQLite, Postgres, MySQL, MongoDB},
	Drizzle:   {SQLite, Postgres, MySQL},
	Mongoose:  {MongoDB},
	Sequelize: {SQLite, Postgres, MySQL},
}

// ORMSupports reports whether orm can target engine
func ORMSupports(orm ORM, engine DatabaseType) bool {
	return contains(ormEngines[orm], engine)
}

// ComponentType categorizes UI components
type ComponentType string

const (
	UIComponent      ComponentType = "ui"
	LayoutComponent  ComponentType = "layout"
	FormComponent    ComponentType = "form"
	DisplayComponent ComponentType = "display"
)

var componentTypes = []ComponentType{UIComponent, LayoutComponent, FormComponent, DisplayComponent}

// HTTPMethod is a route verb
type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	PATCH  HTTPMethod = "PATCH"
	DELETE HTTPMethod = "DELETE"
)

var httpMethods = []HTTPMethod{GET, POST, PUT, PATCH, DELETE}

// FieldType is a model attribute type: a primitive or "ref:<Model>"
type FieldType string

const (
	StringField   FieldType = "string"
	TextField     FieldType = "text"
	IntField      FieldType = "int"
	FloatField    FieldType = "float"
	BooleanField  FieldType = "boolean"
	DateField     FieldType = "date"
	DateTimeField FieldType = "datetime"
	JSONField     FieldType = "json"
	UUIDField     FieldType = "uuid"
)

var primitiveFields = []FieldType{
	StringField, TextField, IntField, FloatField, BooleanField,
	DateField, DateTimeField, JSONField, UUIDField,
}

const refPrefix = "ref:"

// IsReference reports whether the field points at another model
func (t FieldType) IsReference() bool {
	return strings.HasPrefix(string(t), refPrefix)
}

// Target returns the referenced model name, or "" for primitives
func (t FieldType) Target() string {
	if !t.IsReference() {
		return ""
	}
	return strings.TrimPrefix(string(t), refPrefix)
}

// IsPrimitive reports whether t is a recognized primitive type
func (t FieldType) IsPrimitive() bool {
	return contains(primitiveFields, t)
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func join[T ~string](set []T) string {
	parts := make([]string, len(set))
	for i, s := range set {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
