package planner

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/spec"
	"github.com/teranos/forge/templates"
)

// Requirement is one package a stack choice needs.
type Requirement struct {
	Package string
	Range   string
	Dev     bool
	// Source names the stack choice that asked for the package, for conflict messages
	Source string
}

func dep(pkg, rng string) Requirement    { return Requirement{Package: pkg, Range: rng} }
func devDep(pkg, rng string) Requirement { return Requirement{Package: pkg, Range: rng, Dev: true} }

// dependencyTable is the fixed choice -> packages mapping. Keys are
// "<layer>:<choice>"; lookups happen in a fixed order (see requirements).
var dependencyTable = map[string][]Requirement{
	"tooling": {
		devDep("eslint", "^8.57.0"),
		devDep("eslint-config-prettier", "^9.1.0"),
		devDep("prettier", "^3.3.3"),
		devDep("vitest", "^2.1.4"),
		devDep("vite", "^5.0.0"),
	},
	"language:typescript": {
		devDep("typescript", "^5.6.3"),
		devDep("@types/node", "^22.9.0"),
		devDep("@typescript-eslint/parser", "^8.13.0"),
		devDep("@typescript-eslint/eslint-plugin", "^8.13.0"),
	},

	"frontend:react": {
		dep("react", "^18.3.1"),
		dep("react-dom", "^18.3.1"),
		devDep("vite", "^5.4.10"),
		devDep("@vitejs/plugin-react", "^4.3.3"),
		devDep("eslint-plugin-react-hooks", "^5.0.0"),
	},
	"frontend:react:typescript": {
		devDep("@types/react", "^18.3.12"),
		devDep("@types/react-dom", "^18.3.1"),
	},
	"frontend:vue": {
		dep("vue", "^3.5.12"),
		devDep("vite", "^5.4.10"),
		devDep("@vitejs/plugin-vue", "^5.1.4"),
		devDep("eslint-plugin-vue", "^9.30.0"),
	},
	"frontend:vue:typescript": {
		devDep("vue-tsc", "^2.1.10"),
	},
	"frontend:svelte": {
		dep("svelte", "^5.1.9"),
		devDep("vite", "^5.4.10"),
		devDep("@sveltejs/vite-plugin-svelte", "^4.0.0"),
		devDep("eslint-plugin-svelte", "^2.46.0"),
		devDep("prettier-plugin-svelte", "^3.2.7"),
	},
	"frontend:svelte:typescript": {
		devDep("svelte-check", "^4.0.5"),
		devDep("tslib", "^2.8.1"),
	},

	"styling:tailwind": {
		devDep("tailwindcss", "^3.4.14"),
		devDep("postcss", "^8.4.47"),
		devDep("autoprefixer", "^10.4.20"),
	},
	"styling:scss": {
		devDep("sass", "^1.80.6"),
	},

	"router:react-router":   {dep("react-router-dom", "^6.28.0")},
	"router:vue-router":     {dep("vue-router", "^4.4.5")},
	"router:svelte-routing": {dep("svelte-routing", "^2.13.0")},

	"state:zustand": {dep("zustand", "^5.0.1")},
	"state:redux": {
		dep("@reduxjs/toolkit", "^2.3.0"),
		dep("react-redux", "^9.1.2"),
	},
	"state:pinia": {dep("pinia", "^2.2.6")},

	"backend:express": {
		dep("express", "^4.21.1"),
		devDep("supertest", "^7.0.0"),
	},
	"backend:express:typescript": {
		devDep("@types/express", "^5.0.0"),
		devDep("@types/supertest", "^6.0.2"),
		devDep("tsx", "^4.19.2"),
	},
	"backend:fastify": {
		dep("fastify", "^5.1.0"),
	},
	"backend:fastify:typescript": {
		devDep("tsx", "^4.19.2"),
	},
	"backend:concurrent": {
		devDep("concurrently", "^9.1.0"),
	},

	"api:graphql": {
		dep("graphql", "^16.9.0"),
		dep("graphql-http", "^1.22.1"),
	},

	"validation:zod": {dep("zod", "^3.23.8")},
	"validation:joi": {dep("joi", "^17.13.3")},
	"validation:yup": {dep("yup", "^1.4.0")},

	"orm:prisma": {
		dep("@prisma/client", "^5.22.0"),
		devDep("prisma", "^5.22.0"),
	},
	"orm:drizzle": {
		dep("drizzle-orm", "^0.36.1"),
		devDep("drizzle-kit", "^0.28.0"),
	},
	"orm:mongoose":  {dep("mongoose", "^8.8.1")},
	"orm:sequelize": {dep("sequelize", "^6.37.5")},

	"database:sqlite:drizzle": {
		dep("better-sqlite3", "^11.5.0"),
	},
	"database:sqlite:sequelize": {
		dep("sqlite3", "^5.1.7"),
	},
	"database:postgres:drizzle":   {dep("pg", "^8.13.1")},
	"database:postgres:sequelize": {dep("pg", "^8.13.1"), dep("pg-hstore", "^2.3.4")},
	"database:mysql:drizzle":      {dep("mysql2", "^3.11.4")},
	"database:mysql:sequelize":    {dep("mysql2", "^3.11.4")},

	"feature:auth": {
		dep("jsonwebtoken", "^9.0.2"),
	},
	"feature:auth:typescript": {
		devDep("@types/jsonwebtoken", "^9.0.7"),
	},
}

// requirementKeys lists the table keys a Specification selects, in a fixed order.
func requirementKeys(s *spec.Specification) []string {
	keys := []string{"tooling"}
	if s.TypeScript() {
		keys = append(keys, "language:typescript")
	}

	if fe := s.Stack.Frontend; fe != nil {
		fw := string(fe.Framework)
		keys = append(keys, "frontend:"+fw)
		if fe.Language == spec.TypeScript {
			keys = append(keys, "frontend:"+fw+":typescript")
		}
		keys = append(keys,
			"styling:"+string(fe.Styling),
			"router:"+string(fe.Router),
			"state:"+string(fe.State),
		)
	}

	if be := s.Stack.Backend; be != nil {
		fw := string(be.Framework)
		keys = append(keys, "backend:"+fw)
		if be.Language == spec.TypeScript {
			keys = append(keys, "backend:"+fw+":typescript")
		}
		if s.Stack.Frontend != nil {
			keys = append(keys, "backend:concurrent")
		}
		keys = append(keys, "api:"+string(be.API), "validation:"+string(be.Validation))
	}

	if db := s.Stack.Database; db != nil {
		keys = append(keys,
			"orm:"+string(db.ORM),
			"database:"+string(db.Type)+":"+string(db.ORM),
		)
	}

	if s.Features.Auth && s.Stack.Backend != nil {
		keys = append(keys, "feature:auth")
		if s.Stack.Backend.Language == spec.TypeScript {
			keys = append(keys, "feature:auth:typescript")
		}
	}
	return keys
}

// requirements collects every requirement the Specification selects.
// Keys with no table entry (e.g. "router:none") contribute nothing.
func requirements(s *spec.Specification, table map[string][]Requirement) []Requirement {
	var reqs []Requirement
	for _, key := range requirementKeys(s) {
		for _, r := range table[key] {
			r.Source = key
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// DependencyConflictError reports two stack choices asking for incompatible ranges.
type DependencyConflictError struct {
	Package string
	First   Requirement
	Second  Requirement
}

func (e *DependencyConflictError) Error() string {
	return "package " + e.Package + ": " + e.First.Source + " requires " + e.First.Range +
		" but " + e.Second.Source + " requires " + e.Second.Range
}

// Is lets errors.Is(err, errors.ErrDependencyConflict) match.
func (e *DependencyConflictError) Is(target error) bool {
	return target == errors.ErrDependencyConflict
}

// ResolveDependencies unions requirements per package. Two ranges for one
// package are compatible when either range's floor version satisfies the
// other; the range with the higher floor wins. A package needed at runtime by
// any choice is a runtime dependency even if others list it as dev-only.
// Results are sorted by package name.
func ResolveDependencies(reqs []Requirement) (deps, devDeps []templates.Dependency, err error) {
	chosen := make(map[string]Requirement)
	var order []string

	for _, r := range reqs {
		prev, ok := chosen[r.Package]
		if !ok {
			chosen[r.Package] = r
			order = append(order, r.Package)
			continue
		}
		merged, err := mergeRanges(prev, r)
		if err != nil {
			return nil, nil, err
		}
		chosen[r.Package] = merged
	}

	sort.Strings(order)
	for _, pkg := range order {
		r := chosen[pkg]
		d := templates.Dependency{Name: pkg, Version: r.Range}
		if r.Dev {
			devDeps = append(devDeps, d)
		} else {
			deps = append(deps, d)
		}
	}
	return deps, devDeps, nil
}

func mergeRanges(a, b Requirement) (Requirement, error) {
	conflict := &DependencyConflictError{Package: a.Package, First: a, Second: b}

	floorA, err := floor(a.Range)
	if err != nil {
		return Requirement{}, errors.Wrapf(err, "invalid range %q for %s from %s", a.Range, a.Package, a.Source)
	}
	floorB, err := floor(b.Range)
	if err != nil {
		return Requirement{}, errors.Wrapf(err, "invalid range %q for %s from %s", b.Range, b.Package, b.Source)
	}
	consA, err := semver.NewConstraint(a.Range)
	if err != nil {
		return Requirement{}, errors.Wrapf(err, "invalid range %q for %s", a.Range, a.Package)
	}
	consB, err := semver.NewConstraint(b.Range)
	if err != nil {
		return Requirement{}, errors.Wrapf(err, "invalid range %q for %s", b.Range, b.Package)
	}

	var winner Requirement
	switch {
	case consA.Check(floorB) && !floorB.LessThan(floorA):
		winner = b
	case consB.Check(floorA):
		winner = a
	case consA.Check(floorB):
		winner = b
	default:
		return Requirement{}, conflict
	}
	winner.Dev = a.Dev && b.Dev
	return winner, nil
}

// floor returns the lowest version a range admits, e.g. "^18.3.1" -> 18.3.1.
func floor(rng string) (*semver.Version, error) {
	v := strings.TrimLeft(strings.TrimSpace(rng), "^~>=v ")
	if i := strings.IndexAny(v, " ,|"); i >= 0 {
		v = v[:i]
	}
	return semver.NewVersion(v)
}
