package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadCustom loads a template from a JSON or YAML file.
func LoadCustom(path string) (Template, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-supplied template path
	if err != nil {
		return Template{}, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, path, err)
	}

	t, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}

	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Name = strings.TrimSuffix(t.Name, "_template")
	}
	t.Source = Source{Kind: SourceFile, Path: path}
	return t, nil
}

// Parse decodes and validates template data. ext selects the decoder and may
// be given with or without the leading dot (".json", "yaml", ".yml").
func Parse(data []byte, ext string) (Template, error) {
	var t Template
	var alias struct {
		Name string `json:"name" yaml:"name"`
	}

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		if err := json.Unmarshal(data, &t); err != nil {
			return Template{}, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidTemplate, err)
		}
		_ = json.Unmarshal(data, &alias)
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return Template{}, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidTemplate, err)
		}
		_ = yaml.Unmarshal(data, &alias)
	default:
		return Template{}, fmt.Errorf("%w: unsupported template file format %q", ErrInvalidTemplate, ext)
	}

	if t.Name == "" {
		t.Name = alias.Name
	}
	t.normalize()

	if err := validate.Struct(t); err != nil {
		return Template{}, fmt.Errorf("%w: %s", ErrInvalidTemplate, describeValidation(err))
	}
	return t, nil
}

// describeValidation turns validator errors into a short list of field problems.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Template.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s entries", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
