// Package planner derives the ordered list of artifact requests a
// Specification implies. Planning is pure: it never touches the filesystem,
// and the same Specification and mode always produce the same requests.
package planner

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/design"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/internal/util"
	"github.com/teranos/forge/logger"
	"github.com/teranos/forge/spec"
	"github.com/teranos/forge/templates"
)

// Structural directories emitted on every run.
var directories = []string{"client/src", "server/src", "tests"}

// Enricher supplies design-system markup for UI artifacts.
// It is called at most once per component or page.
type Enricher interface {
	Enrich(ctx context.Context, req design.Request) (string, error)
}

// Planner turns a Specification into artifact requests.
type Planner struct {
	registry *templates.Registry
	enricher Enricher
	deps     map[string][]Requirement
	logger   *zap.SugaredLogger
}

// Option configures a Planner.
type Option func(*Planner)

// WithEnricher enables design-system enrichment of components and pages.
func WithEnricher(e Enricher) Option {
	return func(p *Planner) { p.enricher = e }
}

// WithDependencyTable replaces the built-in choice -> package table.
func WithDependencyTable(table map[string][]Requirement) Option {
	return func(p *Planner) { p.deps = table }
}

// WithLogger sets the planner's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Planner) { p.logger = l }
}

// New creates a Planner over a template registry.
func New(registry *templates.Registry, opts ...Option) *Planner {
	p := &Planner{
		registry: registry,
		deps:     dependencyTable,
		logger:   logger.ComponentLogger("planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan produces every artifact request for s in a fixed order: structural
// directories, configuration, per-declaration artifacts in Specification
// order, entry points, then documentation and scripts. Any missing template,
// duplicate path, dependency conflict or enrichment failure fails the whole
// plan; no partial list is returned.
func (p *Planner) Plan(ctx context.Context, s *spec.Specification, mode artifact.Mode) ([]artifact.Request, error) {
	b := &builder{spec: s, seen: make(map[string]artifact.Category)}

	for _, dir := range directories {
		if err := b.add(artifact.Request{Path: dir, Category: artifact.CategoryDirectory, Kind: artifact.KindDirectory}); err != nil {
			return nil, err
		}
	}

	proj, err := p.project(s)
	if err != nil {
		return nil, err
	}

	steps := []func() error{
		func() error { return p.configs(b, proj, mode) },
		func() error { return p.components(ctx, b) },
		func() error { return p.pages(ctx, b) },
		func() error { return p.routes(b) },
		func() error { return p.models(b) },
		func() error { return p.entries(b, proj) },
		func() error { return p.docs(b, proj) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	p.logger.Debugw("Planned artifacts",
		logger.FieldApp, s.App.Name,
		logger.FieldMode, string(mode),
		logger.FieldArtifacts, len(b.requests),
	)
	return b.requests, nil
}

// builder accumulates requests and enforces path uniqueness.
type builder struct {
	spec     *spec.Specification
	requests []artifact.Request
	seen     map[string]artifact.Category
}

func (b *builder) add(r artifact.Request) error {
	r.Path = path.Clean(r.Path)
	if r.Policy == "" {
		r.Policy = artifact.PolicySync
	}
	if prev, dup := b.seen[r.Path]; dup {
		return errors.WithHint(
			errors.Wrapf(errors.ErrDuplicateArtifact, "%s is produced by both a %s and a %s", r.Path, prev, r.Category),
			"rename one of the declarations so their file names differ",
		)
	}
	b.seen[r.Path] = r.Category
	b.requests = append(b.requests, r)
	return nil
}

func (b *builder) file(p, content string, c artifact.Category) error {
	return b.add(artifact.Request{Path: p, Content: content, Category: c})
}

// project gathers data shared by project-level files.
func (p *Planner) project(s *spec.Specification) (templates.Project, error) {
	deps, devDeps, err := ResolveDependencies(requirements(s, p.deps))
	if err != nil {
		return templates.Project{}, err
	}
	proj := templates.Project{
		Spec:            s,
		ClientTS:        s.Stack.Frontend != nil && s.Stack.Frontend.Language == spec.TypeScript,
		ServerTS:        s.Stack.Backend != nil && s.Stack.Backend.Language == spec.TypeScript,
		Dependencies:    deps,
		DevDependencies: devDeps,
		Scripts:         scripts(s),
		SetupCommands:   setupCommands(s),
	}
	if s.Stack.Backend != nil && !proj.ServerTS {
		proj.ImportExt = ".js"
	}
	return proj, nil
}

func (p *Planner) configs(b *builder, proj templates.Project, mode artifact.Mode) error {
	s := b.spec

	type jsonConfig struct {
		path string
		fn   func(templates.Project) (string, error)
	}
	jsonConfigs := []jsonConfig{{"package.json", packageJSON}}
	if s.TypeScript() {
		jsonConfigs = append(jsonConfigs, jsonConfig{"tsconfig.json", tsconfigJSON})
	}
	jsonConfigs = append(jsonConfigs,
		jsonConfig{".eslintrc.json", eslintJSON},
		jsonConfig{".prettierrc", prettierJSON},
	)
	for _, c := range jsonConfigs {
		content, err := c.fn(proj)
		if err != nil {
			return err
		}
		if err := b.file(c.path, content, artifact.CategoryConfig); err != nil {
			return err
		}
	}

	if err := p.renderProject(b, proj, ".gitignore", "gitignore", artifact.CategoryConfig); err != nil {
		return err
	}

	env, err := dotenv(s, envVars(s))
	if err != nil {
		return err
	}
	if err := b.file(".env.example", env, artifact.CategoryConfig); err != nil {
		return err
	}
	if mode == artifact.ModeNew {
		seed := artifact.Request{Path: ".env", Content: env, Category: artifact.CategoryConfig, Policy: artifact.PolicySeed}
		if err := b.add(seed); err != nil {
			return err
		}
	}

	if fe := s.Stack.Frontend; fe != nil {
		configExt := ext(proj.ClientTS, false)
		if err := p.renderProject(b, proj, "client/index.html", "index.html", artifact.CategoryConfig); err != nil {
			return err
		}
		if err := p.renderProject(b, proj, "vite.config."+configExt, "vite.config", artifact.CategoryConfig); err != nil {
			return err
		}
		if fe.Styling == spec.Tailwind {
			if err := p.renderProject(b, proj, "tailwind.config.js", "tailwind.config", artifact.CategoryConfig); err != nil {
				return err
			}
			if err := p.renderProject(b, proj, "postcss.config.js", "postcss.config", artifact.CategoryConfig); err != nil {
				return err
			}
		}
		styleExt := "css"
		if fe.Styling == spec.SCSS {
			styleExt = "scss"
		}
		if err := p.renderProject(b, proj, "client/src/styles/index."+styleExt, "styles", artifact.CategoryStyle); err != nil {
			return err
		}
	}

	if db := s.Stack.Database; db != nil {
		serverExt := ext(proj.ServerTS, false)
		switch db.ORM {
		case spec.Prisma:
			if err := p.renderProject(b, proj, "prisma/schema/schema.prisma", "schema.prisma", artifact.CategoryConfig); err != nil {
				return err
			}
		case spec.Drizzle:
			if err := p.renderProject(b, proj, "drizzle.config."+serverExt, "drizzle.config", artifact.CategoryConfig); err != nil {
				return err
			}
		}
		content, err := templates.RenderProjectPart("db", string(db.ORM), proj)
		if err != nil {
			return err
		}
		if err := b.file("server/src/db."+serverExt, content, artifact.CategoryConfig); err != nil {
			return err
		}
	}

	if be := s.Stack.Backend; be != nil && s.Features.Auth {
		content, err := p.render(templates.CategoryEntry, templates.Framework(be.Framework), templates.Input{Name: "auth", Part: "auth"}, s)
		if err != nil {
			return err
		}
		if err := b.file("server/src/middleware/auth."+ext(proj.ServerTS, false), content, artifact.CategoryConfig); err != nil {
			return err
		}
	}

	return p.renderProject(b, proj, "vitest.config."+ext(s.TypeScript(), false), "vitest.config", artifact.CategoryConfig)
}

// renderProject renders a project-level template into a file request.
func (p *Planner) renderProject(b *builder, proj templates.Project, target, name string, c artifact.Category) error {
	content, err := templates.RenderProject(name, proj)
	if err != nil {
		return err
	}
	return b.file(target, content, c)
}

func (p *Planner) render(c templates.Category, fw templates.Framework, in templates.Input, s *spec.Specification) (string, error) {
	fn, err := p.registry.Resolve(c, fw)
	if err != nil {
		return "", err
	}
	p.logger.Debugw("Rendering template", logger.FieldTemplate, fmt.Sprintf("%s/%s", c, fw), "name", in.Name)
	return fn(in, s)
}

// enrich asks the design collaborator for markup. Failures abort planning.
func (p *Planner) enrich(ctx context.Context, s *spec.Specification, kind, name string, fw templates.Framework, props map[string]any) (string, error) {
	if p.enricher == nil {
		return "", nil
	}
	markup, err := p.enricher.Enrich(ctx, design.Request{
		Kind:      kind,
		Name:      name,
		Framework: string(fw),
		Theme:     s.Styling.Theme,
		Palette:   s.Styling.Palette,
		Props:     props,
	})
	if err != nil {
		return "", errors.WithHint(
			errors.Wrapf(errors.Mark(err, errors.ErrEnrichment), "failed to enrich %s %s", kind, name),
			"disable design enrichment with design.enabled = false to render without it",
		)
	}
	return markup, nil
}

func (p *Planner) components(ctx context.Context, b *builder) error {
	s := b.spec
	fw, ok := templates.FrameworkFor(templates.CategoryComponent, s)
	if !ok {
		return nil
	}
	ts := s.Stack.Frontend.Language == spec.TypeScript
	for i := range s.Components {
		c := s.Components[i]
		name := util.ToPascalCase(c.Name)
		markup, err := p.enrich(ctx, s, "component", name, fw, c.Props)
		if err != nil {
			return err
		}
		content, err := p.render(templates.CategoryComponent, fw, templates.Input{
			Name: name, Props: c.Props, Component: &c, Enrichment: markup,
		}, s)
		if err != nil {
			return err
		}
		if err := b.file("client/src/components/"+name+uiExt(fw, ts), content, artifact.CategoryComponent); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) pages(ctx context.Context, b *builder) error {
	s := b.spec
	fw, ok := templates.FrameworkFor(templates.CategoryPage, s)
	if !ok {
		return nil
	}
	ts := s.Stack.Frontend.Language == spec.TypeScript
	for i := range s.Pages {
		pg := s.Pages[i]
		name := util.ToPascalCase(pg.Name)
		markup, err := p.enrich(ctx, s, "page", name, fw, pg.Props)
		if err != nil {
			return err
		}
		content, err := p.render(templates.CategoryPage, fw, templates.Input{
			Name: name, Props: pg.Props, Page: &pg, Enrichment: markup,
		}, s)
		if err != nil {
			return err
		}
		if err := b.file("client/src/pages/"+name+uiExt(fw, ts), content, artifact.CategoryPage); err != nil {
			return err
		}
	}
	return nil
}

// routes emits one router per resource plus its test stub. Two routes with
// the same method and path are rejected: they would collide in one router.
func (p *Planner) routes(b *builder) error {
	s := b.spec
	fw, ok := templates.FrameworkFor(templates.CategoryRoute, s)
	if !ok {
		return nil
	}

	declared := make(map[string]int, len(s.Routes))
	for i, r := range s.Routes {
		key := string(r.Method) + " " + path.Clean(r.Path)
		if prev, dup := declared[key]; dup {
			return errors.Wrapf(errors.ErrDuplicateArtifact, "route %s is declared by routes[%d] and routes[%d]", key, prev, i)
		}
		declared[key] = i
	}

	e := ext(s.Stack.Backend.Language == spec.TypeScript, false)
	for _, g := range s.RouteGroups() {
		g := g
		in := templates.Input{Name: g.Resource, Routes: &g}
		content, err := p.render(templates.CategoryRoute, fw, in, s)
		if err != nil {
			return err
		}
		if err := b.file("server/src/routes/"+g.Resource+"."+e, content, artifact.CategoryRoute); err != nil {
			return err
		}
		test, err := p.render(templates.CategoryTest, fw, in, s)
		if err != nil {
			return err
		}
		if err := b.file("tests/routes/"+g.Resource+".test."+e, test, artifact.CategoryTest); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) models(b *builder) error {
	s := b.spec
	fw, ok := templates.FrameworkFor(templates.CategoryModel, s)
	if !ok {
		return nil
	}
	e := ext(s.Stack.Backend.Language == spec.TypeScript, false)
	for i := range s.Database.Models {
		m := s.Database.Models[i]
		name := util.ToPascalCase(m.Name)
		content, err := p.render(templates.CategoryModel, fw, templates.Input{Name: name, Model: &m}, s)
		if err != nil {
			return err
		}
		target := "server/src/models/" + name + "." + e
		if fw == templates.Prisma {
			target = "prisma/schema/" + util.ToSnakeCase(m.Name) + ".prisma"
		}
		if err := b.file(target, content, artifact.CategoryModel); err != nil {
			return err
		}
	}
	return nil
}

// entries emits the server bootstrap, which references routers by module
// only, and the client entry, app shell and optional state store.
func (p *Planner) entries(b *builder, proj templates.Project) error {
	s := b.spec
	if be := s.Stack.Backend; be != nil {
		content, err := p.render(templates.CategoryEntry, templates.Framework(be.Framework), templates.Input{Name: "index"}, s)
		if err != nil {
			return err
		}
		if err := b.file("server/src/index."+ext(proj.ServerTS, false), content, artifact.CategoryEntry); err != nil {
			return err
		}
	}

	fe := s.Stack.Frontend
	if fe == nil {
		return nil
	}
	fw := templates.Framework(fe.Framework)
	parts := []struct {
		part, target string
	}{
		{"", "client/src/main." + ext(proj.ClientTS, fw == templates.React)},
		{"app", "client/src/App" + uiExt(fw, proj.ClientTS)},
	}
	if fe.State != spec.NoState {
		parts = append(parts, struct{ part, target string }{"store", "client/src/store." + ext(proj.ClientTS, false)})
	}
	for _, pt := range parts {
		content, err := p.render(templates.CategoryEntry, fw, templates.Input{Name: path.Base(pt.target), Part: pt.part}, s)
		if err != nil {
			return err
		}
		if err := b.file(pt.target, content, artifact.CategoryEntry); err != nil {
			return err
		}
	}
	return nil
}

// docs emits the README and setup script last; the README lists every
// synchronized file planned before it. Seeds are left out because they are
// only planned in ModeNew and the README must not differ between modes.
func (p *Planner) docs(b *builder, proj templates.Project) error {
	const readme, setup = "README.md", "scripts/setup.sh"
	for _, r := range b.requests {
		if r.Kind == artifact.KindFile && r.Policy != artifact.PolicySeed {
			proj.Artifacts = append(proj.Artifacts, r.Path)
		}
	}
	proj.Artifacts = append(proj.Artifacts, readme, setup)

	if err := p.renderProject(b, proj, readme, "README.md", artifact.CategoryDoc); err != nil {
		return err
	}
	content, err := templates.RenderProject("setup.sh", proj)
	if err != nil {
		return err
	}
	return b.add(artifact.Request{Path: setup, Content: content, Category: artifact.CategoryScript, Executable: true})
}

// ext picks a source extension for a layer's language.
func ext(ts, jsx bool) string {
	e := "js"
	if ts {
		e = "ts"
	}
	if jsx {
		e += "x"
	}
	return e
}

// uiExt is the extension for UI artifacts, including the leading dot.
func uiExt(fw templates.Framework, ts bool) string {
	switch fw {
	case templates.Vue:
		return ".vue"
	case templates.Svelte:
		return ".svelte"
	}
	return "." + ext(ts, true)
}

// Describe renders a one-line summary of a request for plan listings.
func Describe(r artifact.Request) string {
	kind := string(r.Category)
	if r.Policy == artifact.PolicySeed {
		kind += ", create-only"
	}
	if r.Executable {
		kind += ", executable"
	}
	if r.Kind == artifact.KindDirectory {
		return fmt.Sprintf("%s/ (%s)", strings.TrimSuffix(r.Path, "/"), kind)
	}
	return fmt.Sprintf("%s (%s, %d bytes)", r.Path, kind, len(r.Content))
}
