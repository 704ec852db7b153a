package spec

// Specification sources.
// Local documents are decoded by extension (.json, .yaml/.yml, .toml).
// Remote sources are resolved with hashicorp/go-getter:
//   - HTTP(S) URLs: https://example.com/specs/todo.json
//   - Git: git::https://github.com/user/specs.git//todo.yaml?ref=main
//   - Object stores: s3::https://s3.amazonaws.com/bucket/todo.toml

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-getter"
	"gopkg.in/yaml.v3"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
)

// LoadFile reads a Specification document from disk. YAML and TOML documents
// are normalized to JSON before validation so every format goes through Load.
func LoadFile(file string) (*Specification, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read specification %s", file)
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, schemaErr("", "malformed YAML: %v", err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return nil, schemaErr("", "YAML document cannot be represented as JSON: %v", err)
		}
	case ".toml":
		var doc map[string]interface{}
		if _, err := toml.Decode(string(raw), &doc); err != nil {
			return nil, schemaErr("", "malformed TOML: %v", err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return nil, schemaErr("", "TOML document cannot be represented as JSON: %v", err)
		}
	}

	return Load(raw)
}

// IsRemote reports whether source needs fetching rather than a local read.
func IsRemote(source string) bool {
	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	detected, err := getter.Detect(source, pwd, getter.Detectors)
	if err != nil {
		return false
	}
	u, err := url.Parse(detected)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Scheme != "file"
}

// Fetch loads a Specification from a local path or a go-getter source.
// Remote documents are downloaded into a scratch directory that is removed
// before Fetch returns.
func Fetch(ctx context.Context, source string) (*Specification, error) {
	if !IsRemote(source) {
		return LoadFile(source)
	}

	log := logger.ComponentLogger("spec")

	tempDir, err := os.MkdirTemp("", "forge-spec-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tempDir)

	dst := filepath.Join(tempDir, documentName(source))
	client := &getter.Client{
		Ctx:     ctx,
		Src:     source,
		Dst:     dst,
		Mode:    getter.ClientModeFile,
		Getters: getter.Getters,
	}

	log.Infow("Fetching specification", "source", source)
	if err := client.Get(); err != nil {
		return nil, errors.WithHintf(
			errors.Wrapf(err, "failed to fetch specification from %s", source),
			"check the URL, or download the document and pass its local path",
		)
	}

	return LoadFile(dst)
}

// documentName keeps the remote file's extension so LoadFile picks the right
// decoder. Sources without a recognized extension are treated as JSON.
func documentName(source string) string {
	src := source
	if i := strings.Index(src, "::"); i >= 0 {
		src = src[i+2:]
	}
	name := "spec.json"
	if u, err := url.Parse(src); err == nil {
		// git sources address a file inside the repo after "//"
		p := u.Path
		if i := strings.LastIndex(p, "//"); i >= 0 {
			p = p[i+1:]
		}
		switch strings.ToLower(path.Ext(p)) {
		case ".json", ".yaml", ".yml", ".toml":
			name = "spec" + strings.ToLower(path.Ext(p))
		}
	}
	return name
}
