package templates

import (
	"bytes"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/spec"
)

//go:embed builtin
var builtinFS embed.FS

// parsed holds every embedded template, parsed once at package load.
var parsed = mustParse()

type templateSet struct {
	keyed   map[Key]*template.Template
	project map[string]*template.Template
}

func mustParse() templateSet {
	set := templateSet{
		keyed:   make(map[Key]*template.Template),
		project: make(map[string]*template.Template),
	}
	err := fs.WalkDir(builtinFS, "builtin", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ".tmpl" {
			return err
		}
		body, err := builtinFS.ReadFile(p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(p, "builtin/")
		name := strings.TrimSuffix(rel, ".tmpl")
		t, err := template.New(name).Funcs(funcMap).Parse(string(body))
		if err != nil {
			return errors.Wrapf(err, "failed to parse template %s", p)
		}
		dir, file := path.Split(name)
		dir = strings.TrimSuffix(dir, "/")
		if dir == "project" {
			set.project[file] = t
			return nil
		}
		set.keyed[Key{Category(dir), Framework(file)}] = t
		return nil
	})
	if err != nil {
		panic(err)
	}
	return set
}

// artifactData is what keyed templates see: the artifact input plus the
// global Specification and the owning layer's dialect.
type artifactData struct {
	Input
	Spec *spec.Specification
	TS   bool
	// ImportExt is appended to relative imports (".js" for ESM JavaScript servers)
	ImportExt string
}

// SetVersion identifies the embedded template set. Bump it whenever a built-in
// template changes what it renders, since incremental runs will rewrite files.
const SetVersion = "2026.10.1"

// Builtin returns a registry holding every embedded template.
func Builtin() *Registry {
	r := NewRegistry()
	for key, t := range parsed.keyed {
		r.Register(key.Category, key.Framework, executor(key, t))
	}
	return r
}

func executor(key Key, t *template.Template) Renderer {
	return func(in Input, s *spec.Specification) (string, error) {
		data := artifactData{Input: in, Spec: s}
		if key.Framework.IsFrontend() {
			data.TS = s.Stack.Frontend != nil && s.Stack.Frontend.Language == spec.TypeScript
		} else if s.Stack.Backend != nil {
			data.TS = s.Stack.Backend.Language == spec.TypeScript
			if !data.TS {
				data.ImportExt = ".js"
			}
		}

		name := t.Name()
		if in.Part != "" {
			name = in.Part
		}
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, name, data); err != nil {
			return "", errors.Wrapf(err, "failed to render %s for %s", key, in.Name)
		}
		return normalize(buf.String()), nil
	}
}

// normalize trims leading blank lines and guarantees exactly one trailing newline.
func normalize(s string) string {
	return strings.TrimLeft(strings.TrimRight(s, " \n"), "\n") + "\n"
}

// Dependency is one package.json entry.
type Dependency struct {
	Name    string
	Version string
}

// Script is one package.json script.
type Script struct {
	Name    string
	Command string
}

// Project is the data for project-level files (configs, docs, scripts).
type Project struct {
	Spec            *spec.Specification
	ClientTS        bool
	ServerTS        bool
	Dependencies    []Dependency
	DevDependencies []Dependency
	Scripts         []Script
	// SetupCommands are shell lines, already quoted
	SetupCommands []string
	// Artifacts lists generated paths for the README
	Artifacts []string
	ImportExt string
}

// RenderProject renders the named project-level template.
func RenderProject(name string, p Project) (string, error) {
	return RenderProjectPart(name, "", p)
}

// RenderProjectPart renders a named sub-template of a project-level template.
func RenderProjectPart(name, part string, p Project) (string, error) {
	t, ok := parsed.project[name]
	if !ok {
		return "", errors.Wrapf(errors.ErrTemplateNotFound, "project template %s", name)
	}
	if part == "" {
		part = t.Name()
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, part, p); err != nil {
		return "", errors.Wrapf(err, "failed to render project template %s", name)
	}
	return normalize(buf.String()), nil
}

// ProjectTemplates lists the embedded project-level template names.
func ProjectTemplates() []string {
	names := make([]string, 0, len(parsed.project))
	for n := range parsed.project {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
