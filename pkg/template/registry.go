package template

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jmylchreest/pdfstruct/internal/logger"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtins    map[string]Template
)

// loadBuiltins parses the embedded template files once. A parse failure is a
// packaging bug, so it panics.
func loadBuiltins() map[string]Template {
	builtinOnce.Do(func() {
		entries, err := builtinFS.ReadDir("builtin")
		if err != nil {
			panic(fmt.Sprintf("template: reading embedded templates: %v", err))
		}

		builtins = make(map[string]Template, len(entries))
		for _, entry := range entries {
			name := path.Join("builtin", entry.Name())
			data, err := builtinFS.ReadFile(name)
			if err != nil {
				panic(fmt.Sprintf("template: reading %s: %v", name, err))
			}
			t, err := Parse(data, path.Ext(name))
			if err != nil {
				panic(fmt.Sprintf("template: parsing %s: %v", name, err))
			}
			t.Source = Source{Kind: SourceBuiltin}
			builtins[t.Name] = t
		}
	})
	return builtins
}

// Entry describes a template for listing.
type Entry struct {
	Name        string
	Description string
	Source      Source
}

// Registry looks up templates by name. Built-in templates take precedence
// over files found in the configured directories.
type Registry struct {
	builtin map[string]Template
	dirs    []string
}

// NewRegistry creates a registry that also searches dirs for template files
// named <name>.yaml, <name>.yml, <name>.json or <name>_template.json.
func NewRegistry(dirs ...string) *Registry {
	var cleaned []string
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return &Registry{
		builtin: loadBuiltins(),
		dirs:    cleaned,
	}
}

// Get returns the named template.
func (r *Registry) Get(name string) (Template, error) {
	name = strings.TrimSpace(name)
	if t, ok := r.builtin[name]; ok {
		return t, nil
	}

	if name != "" && !strings.ContainsAny(name, `/\`) {
		for _, dir := range r.dirs {
			for _, candidate := range candidateFiles(dir, name) {
				if _, err := os.Stat(candidate); err != nil {
					continue
				}
				logger.Debug("loading template from directory", "name", name, "path", candidate)
				return LoadCustom(candidate)
			}
		}
	}

	return Template{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownTemplate, name, strings.Join(r.List(), ", "))
}

// Resolve picks a template from either a custom file path or a name. The
// custom path wins when both are set.
func (r *Registry) Resolve(name, customPath string) (Template, error) {
	if customPath != "" {
		if name != "" {
			logger.Warn("both template name and custom template given, using custom template",
				"name", name, "path", customPath)
		}
		return LoadCustom(customPath)
	}
	if name == "" {
		return Template{}, fmt.Errorf("%w: no template specified (use --template or --custom-template)", ErrUnknownTemplate)
	}
	return r.Get(name)
}

// List returns the built-in template names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builtin))
	for name := range r.builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListAll returns built-in templates followed by valid custom templates found
// in the configured directories. Custom templates that share a name with an
// earlier entry are skipped.
func (r *Registry) ListAll() []Entry {
	seen := make(map[string]bool)
	var entries []Entry
	for _, name := range r.List() {
		t := r.builtin[name]
		seen[name] = true
		entries = append(entries, Entry{Name: name, Description: t.Description, Source: t.Source})
	}

	for _, dir := range r.dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			logger.Debug("skipping template directory", "dir", dir, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir() || !isTemplateFile(f.Name()) {
				continue
			}
			t, err := LoadCustom(filepath.Join(dir, f.Name()))
			if err != nil {
				logger.Debug("skipping invalid template file", "file", f.Name(), "error", err)
				continue
			}
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			entries = append(entries, Entry{Name: t.Name, Description: t.Description, Source: t.Source})
		}
	}
	return entries
}

func candidateFiles(dir, name string) []string {
	return []string{
		filepath.Join(dir, name+".yaml"),
		filepath.Join(dir, name+".yml"),
		filepath.Join(dir, name+".json"),
		filepath.Join(dir, name+"_template.json"),
	}
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
