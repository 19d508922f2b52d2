package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/azniosman/Project-Fortress/internal/service"
)

// ExportOptions controls an infrastructure-as-code export.
type ExportOptions struct {
	// Format selects the IaC dialect (terraform, cloudformation).
	Format string
	// OutputPath is the destination directory.
	OutputPath string
	// Region optionally scopes the export.
	Region string
}

// ExportSummary describes which handlers exported successfully and which failed.
type ExportSummary struct {
	// Successful lists resource types whose handler export succeeded.
	Successful []string `json:"successful_services"`
	// Failed maps resource types to their export error.
	Failed map[string]string `json:"failed_services,omitempty"`
	// OutputPath is the destination that was written.
	OutputPath string `json:"output_path"`
}

// Export invokes every export-capable handler independently. A failure in one
// handler never stops the others; the result is success only when every
// attempted handler succeeded, and otherwise a partial failure naming the
// handlers that failed.
func (e *Engine) Export(ctx context.Context, opts ExportOptions) Result {
	e.logger.Info("exporting resources", "format", opts.Format, "output", opts.OutputPath)

	var exporters []service.Handler
	for _, h := range e.registry.All() {
		if service.Supports(h, service.OpExport) {
			exporters = append(exporters, h)
		}
	}
	if len(exporters) == 0 {
		return failuref("no service handlers support exporting to %s", opts.Format)
	}

	params := service.Params{
		ExportFormat: opts.Format,
		OutputPath:   opts.OutputPath,
		Region:       opts.Region,
	}

	summary := ExportSummary{OutputPath: opts.OutputPath}
	for _, h := range exporters {
		outcome := e.execute(ctx, h, service.OpExport, params)
		if outcome.Success {
			summary.Successful = append(summary.Successful, h.Name())
			continue
		}
		if summary.Failed == nil {
			summary.Failed = make(map[string]string)
		}
		summary.Failed[h.Name()] = outcome.Err
	}

	if len(summary.Failed) > 0 {
		parts := make([]string, 0, len(summary.Failed))
		for _, h := range exporters {
			if msg, ok := summary.Failed[h.Name()]; ok {
				parts = append(parts, fmt.Sprintf("%s: %s", h.Name(), msg))
			}
		}
		return Result{
			Success:      false,
			Output:       summary,
			ErrorMessage: fmt.Sprintf("export partially failed: %s", strings.Join(parts, ", ")),
		}
	}

	return Result{Success: true, Output: summary}
}

// CheckPermissions asks every handler advertising a permission check whether
// its operations are allowed, and returns one "<type>: <reason>" entry per
// handler reporting missing permissions. Handlers without the capability are
// silently skipped.
func (e *Engine) CheckPermissions(ctx context.Context) []string {
	var issues []string
	for _, h := range e.registry.All() {
		if !service.Supports(h, service.OpCheckPermissions) {
			continue
		}
		outcome := e.execute(ctx, h, service.OpCheckPermissions, service.Params{})
		if !outcome.Success {
			issues = append(issues, fmt.Sprintf("%s: %s", h.Name(), outcome.Err))
		}
	}
	return issues
}

// CreateTemplate captures described resources into a stored template. Every
// resource reference must use the "service:id" form.
func (e *Engine) CreateTemplate(ctx context.Context, name, description string, resourceIDs []string, outputDir string) Result {
	e.logger.Info("creating template from resources", "template", name, "resources", resourceIDs)

	var captured []TemplateResource
	for _, ref := range resourceIDs {
		svc, id, ok := strings.Cut(ref, ":")
		if !ok {
			return failuref("invalid resource reference %q, expected 'service:id'", ref)
		}

		handler, found := e.registry.Lookup(svc)
		if !found {
			return failuref("service handler '%s' not found for resource %s", svc, ref)
		}

		outcome := e.execute(ctx, handler, service.OpDescribe, service.Params{ResourceID: id})
		if !outcome.Success {
			return failuref("failed to get details for %s: %s", ref, outcome.Err)
		}

		details, _ := outcome.Output.(map[string]any)
		if details == nil {
			details = map[string]any{"details": outcome.Output}
		}
		captured = append(captured, TemplateResource{Service: svc, ID: id, Details: details})
	}

	path, err := e.templates.CreateFromResources(name, description, captured, outputDir)
	if err != nil {
		return failuref("failed to create template '%s': %v", name, err)
	}
	return Result{Success: true, Output: path}
}
