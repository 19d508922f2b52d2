// Package engine contains the orchestration logic for resource operations.
// It translates caller intent into handler invocations, enforces dependency
// policy, and normalizes every outcome into a uniform result value.
package engine

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/azniosman/Project-Fortress/internal/logging"
	"github.com/azniosman/Project-Fortress/internal/resolver"
	"github.com/azniosman/Project-Fortress/internal/service"
	"github.com/azniosman/Project-Fortress/internal/state"
)

// HandlerRegistry resolves resource types to their service handlers.
type HandlerRegistry interface {
	Lookup(service string) (service.Handler, bool)
	All() []service.Handler
}

// TemplateSource provides stored resource templates.
type TemplateSource interface {
	Template(service, name string) (map[string]any, bool, error)
	CreateFromResources(name, description string, resources []TemplateResource, outputDir string) (string, error)
}

// TemplateResource is one described resource captured into a template.
type TemplateResource struct {
	Service string
	ID      string
	Details map[string]any
}

// DependencyChecker answers static ordering and precondition questions.
type DependencyChecker interface {
	CheckCreation(service string, template map[string]any) []string
	SortByDependencies(requests []resolver.Request) []resolver.Request
}

// DependentsIndex answers the runtime question of which resources currently
// depend on a given resource.
type DependentsIndex interface {
	DependentsOf(ctx context.Context, service, id string) ([]state.Ref, error)
}

// BatchLoader loads a batch specification from an external source.
type BatchLoader func(path string) ([]resolver.Request, error)

// Options collects the collaborators an Engine needs.
type Options struct {
	Registry   HandlerRegistry
	Templates  TemplateSource
	Resolver   DependencyChecker
	Dependents DependentsIndex
	LoadBatch  BatchLoader
	Logger     *slog.Logger
}

// Engine is the single entry point for resource operations. Every public
// method returns a Result and never lets an internal fault escape.
type Engine struct {
	registry   HandlerRegistry
	templates  TemplateSource
	resolver   DependencyChecker
	dependents DependentsIndex
	loadBatch  BatchLoader
	logger     *slog.Logger
}

// New constructs an Engine from the given collaborators.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	return &Engine{
		registry:   opts.Registry,
		templates:  opts.Templates,
		resolver:   opts.Resolver,
		dependents: opts.Dependents,
		loadBatch:  opts.LoadBatch,
		logger:     logger,
	}
}

// CreateOptions describes a single-resource creation.
type CreateOptions struct {
	// Service is the resource type to create.
	Service string
	// Name is an optional human label.
	Name string
	// Template names a stored template to resolve before creation.
	Template string
	// Config is an inline configuration blob used when no template is named.
	Config map[string]any
	// DryRun validates without creating.
	DryRun bool
	// SkipDependencyCheck bypasses the precondition check.
	SkipDependencyCheck bool
}

// CreateResource creates one resource: resolve the handler, resolve the
// template if named, check dependency preconditions unless skipped, then
// invoke the handler.
func (e *Engine) CreateResource(ctx context.Context, opts CreateOptions) Result {
	e.logger.Info("creating resource", "service", opts.Service, "name", opts.Name)

	handler, ok := e.registry.Lookup(opts.Service)
	if !ok {
		return failuref("service handler '%s' not found", opts.Service)
	}

	templateConfig := opts.Config
	if opts.Template != "" {
		doc, found, err := e.templates.Template(opts.Service, opts.Template)
		if err != nil {
			return failure(err)
		}
		if !found {
			return failuref("template '%s' not found for service '%s'", opts.Template, opts.Service)
		}
		templateConfig = doc
	}

	if !opts.SkipDependencyCheck {
		if issues := e.resolver.CheckCreation(opts.Service, templateConfig); len(issues) > 0 {
			return failuref("dependency issues: %s", strings.Join(issues, ", "))
		}
	}

	outcome := e.execute(ctx, handler, service.OpCreate, service.Params{
		ResourceName:   opts.Name,
		TemplateConfig: templateConfig,
		DryRun:         opts.DryRun,
	})
	return e.normalize(outcome, "create", opts.Service)
}

// ListResources lists resources of one type, optionally filtered.
func (e *Engine) ListResources(ctx context.Context, svc, filter string) Result {
	e.logger.Info("listing resources", "service", svc)

	handler, ok := e.registry.Lookup(svc)
	if !ok {
		return failuref("service handler '%s' not found", svc)
	}

	outcome := e.execute(ctx, handler, service.OpList, service.Params{Filter: filter})
	return e.normalize(outcome, "list", svc)
}

// UpdateOptions describes a single-resource update.
type UpdateOptions struct {
	Service    string
	ResourceID string
	Parameters map[string]any
	DryRun     bool
}

// UpdateResource updates attributes of one existing resource.
func (e *Engine) UpdateResource(ctx context.Context, opts UpdateOptions) Result {
	e.logger.Info("updating resource", "service", opts.Service, "id", opts.ResourceID)

	handler, ok := e.registry.Lookup(opts.Service)
	if !ok {
		return failuref("service handler '%s' not found", opts.Service)
	}

	outcome := e.execute(ctx, handler, service.OpUpdate, service.Params{
		ResourceID: opts.ResourceID,
		Parameters: opts.Parameters,
		DryRun:     opts.DryRun,
	})
	return e.normalize(outcome, "update", opts.Service)
}

// DeleteOptions describes a single-resource deletion.
type DeleteOptions struct {
	Service    string
	ResourceID string
	DryRun     bool
	// SkipDependencyCheck bypasses the dependents guard.
	SkipDependencyCheck bool
}

// DeleteResource deletes one resource. Unless the check is skipped, deletion
// is refused while other resources still depend on it.
func (e *Engine) DeleteResource(ctx context.Context, opts DeleteOptions) Result {
	e.logger.Info("deleting resource", "service", opts.Service, "id", opts.ResourceID)

	handler, ok := e.registry.Lookup(opts.Service)
	if !ok {
		return failuref("service handler '%s' not found", opts.Service)
	}

	if !opts.SkipDependencyCheck {
		dependents, err := e.dependents.DependentsOf(ctx, opts.Service, opts.ResourceID)
		if err != nil {
			return failure(err)
		}
		if len(dependents) > 0 {
			names := make([]string, 0, len(dependents))
			for _, d := range dependents {
				names = append(names, d.String())
			}
			return failuref("cannot delete: resource has dependents: %s", strings.Join(names, ", "))
		}
	}

	outcome := e.execute(ctx, handler, service.OpDelete, service.Params{
		ResourceID: opts.ResourceID,
		DryRun:     opts.DryRun,
	})
	return e.normalize(outcome, "delete", opts.Service)
}

// execute invokes a handler operation and converts any panic at the plugin
// boundary into a failed outcome.
func (e *Engine) execute(ctx context.Context, h service.Handler, operation string, p service.Params) (out service.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked", "service", h.Name(), "operation", operation, "panic", r)
			out = service.Fail("internal fault in %s handler during %s: %v", h.Name(), operation, r)
		}
	}()
	return h.Execute(ctx, operation, p)
}

// normalize converts a handler outcome into the engine's uniform Result.
func (e *Engine) normalize(outcome service.Outcome, operation, svc string) Result {
	if outcome.Success {
		e.logger.Info("operation succeeded", "operation", operation, "service", svc)
		return Result{Success: true, Output: outcome.Output}
	}
	e.logger.Error("operation failed", "operation", operation, "service", svc, "error", outcome.Err)
	return Result{Success: false, Output: outcome.Output, ErrorMessage: outcome.Err}
}
