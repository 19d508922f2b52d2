package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TemplateStore loads and persists resource templates. Templates live under
// <dir>/<service>/<name>.yaml and hold an opaque configuration document that
// fortress passes through to the service handler.
type TemplateStore struct {
	dir    string
	logger *slog.Logger
}

// TemplateInfo describes one stored template.
type TemplateInfo struct {
	// Name is the template name (file name without extension).
	Name string `yaml:"name"`
	// Description is taken from the template's description field, if any.
	Description string `yaml:"description"`
	// Path is the absolute file path of the template.
	Path string `yaml:"path"`
}

// ResourceDetail is one described resource captured into a template.
type ResourceDetail struct {
	// Service is the resource type key.
	Service string
	// ID is the resource identifier.
	ID string
	// Details is the handler's describe output for the resource.
	Details map[string]any
}

// NewTemplateStore constructs a TemplateStore rooted at dir.
func NewTemplateStore(dir string, logger *slog.Logger) *TemplateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateStore{dir: dir, logger: logger}
}

// Template loads a template for a service by name. The second return value is
// false when the template does not exist.
func (s *TemplateStore) Template(service, name string) (map[string]any, bool, error) {
	path := filepath.Join(s.dir, service, name+".yaml")

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.logger.Warn("template not found", "service", service, "template", name)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read template %q: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("parse template %q: %w", path, err)
	}
	return doc, true, nil
}

// Available lists stored templates grouped by service. When service is
// non-empty only that service's templates are returned.
func (s *TemplateStore) Available(service string) (map[string][]TemplateInfo, error) {
	out := make(map[string][]TemplateInfo)

	services := []string{service}
	if service == "" {
		entries, err := os.ReadDir(s.dir)
		if os.IsNotExist(err) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read templates directory %q: %w", s.dir, err)
		}
		services = services[:0]
		for _, e := range entries {
			if e.IsDir() {
				services = append(services, e.Name())
			}
		}
	}

	for _, svc := range services {
		infos, err := s.templatesIn(filepath.Join(s.dir, svc))
		if err != nil {
			return nil, err
		}
		if len(infos) > 0 {
			out[svc] = infos
		}
	}
	return out, nil
}

func (s *TemplateStore) templatesIn(dir string) ([]TemplateInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read template directory %q: %w", dir, err)
	}

	var infos []TemplateInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template %q: %w", path, err)
		}
		var doc struct {
			Description string `yaml:"description"`
		}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			s.logger.Warn("skipping unparseable template", "path", path, "error", err)
			continue
		}

		infos = append(infos, TemplateInfo{
			Name:        strings.TrimSuffix(strings.TrimSuffix(name, ".yml"), ".yaml"),
			Description: doc.Description,
			Path:        path,
		})
	}
	return infos, nil
}

// CreateFromResources writes a new template per service from described
// resources and returns the first created path.
func (s *TemplateStore) CreateFromResources(name, description string, resources []ResourceDetail, outputDir string) (string, error) {
	if len(resources) == 0 {
		return "", fmt.Errorf("no resources to capture into template %q", name)
	}
	if outputDir == "" {
		outputDir = s.dir
	}

	byService := make(map[string][]map[string]any)
	var serviceOrder []string
	for _, res := range resources {
		if _, seen := byService[res.Service]; !seen {
			serviceOrder = append(serviceOrder, res.Service)
		}
		byService[res.Service] = append(byService[res.Service], res.Details)
	}

	var first string
	for _, svc := range serviceOrder {
		dir := filepath.Join(outputDir, svc)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create template directory %q: %w", dir, err)
		}

		doc := map[string]any{
			"name":        name,
			"description": description,
			"resources":   byService[svc],
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("encode template %q for %s: %w", name, svc, err)
		}

		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("write template %q: %w", path, err)
		}
		s.logger.Info("template created", "service", svc, "path", path)
		if first == "" {
			first = path
		}
	}
	return first, nil
}
