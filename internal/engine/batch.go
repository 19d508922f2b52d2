package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/azniosman/Project-Fortress/internal/resolver"
)

// BatchOptions controls batch creation behavior.
type BatchOptions struct {
	// DryRun validates each creation without performing it.
	DryRun bool
	// IgnoreErrors continues through the ordered list after a failure
	// instead of stopping at the first failing request.
	IgnoreErrors bool
}

// BatchRow records the outcome of one request in a batch.
type BatchRow struct {
	// Service is the resource type of the request.
	Service string `json:"service"`
	// Name is the request's human label.
	Name string `json:"name,omitempty"`
	// Success reports whether the creation succeeded.
	Success bool `json:"success"`
	// Output holds the handler output on success, or the error message.
	Output any `json:"output,omitempty"`
}

// BatchResult aggregates the rows of one batch creation.
type BatchResult struct {
	// Success is true when the batch ran to completion (always true under
	// IgnoreErrors, even with failing rows).
	Success bool `json:"success"`
	// Rows holds one entry per attempted request, in execution order.
	// Requests after a stop-early failure are not attempted and have no row.
	Rows []BatchRow `json:"rows"`
	// Failures lists the failing requests when the batch stopped early.
	Failures []string `json:"failures,omitempty"`
	// ErrorMessage summarizes the failure when Success is false.
	ErrorMessage string `json:"error,omitempty"`
}

// BatchCreateFile loads a batch specification from path and creates it.
func (e *Engine) BatchCreateFile(ctx context.Context, path string, opts BatchOptions) BatchResult {
	e.logger.Info("batch creating resources", "path", path)

	if e.loadBatch == nil {
		return BatchResult{Success: false, ErrorMessage: "no batch loader configured"}
	}
	requests, err := e.loadBatch(path)
	if err != nil {
		return BatchResult{Success: false, ErrorMessage: fmt.Sprintf("failed to load batch configuration: %v", err)}
	}
	return e.BatchCreate(ctx, requests, opts)
}

// BatchCreate creates the given requests in dependency order. Ordering
// already enforces preconditions, so per-request dependency checks are
// disabled. Resources created before a failure are never rolled back.
func (e *Engine) BatchCreate(ctx context.Context, requests []resolver.Request, opts BatchOptions) BatchResult {
	ordered := e.resolver.SortByDependencies(requests)

	var rows []BatchRow
	var failures []string

	for _, req := range ordered {
		res := e.CreateResource(ctx, CreateOptions{
			Service:             req.Service,
			Name:                req.Name,
			Template:            req.Template,
			Config:              req.Config,
			DryRun:              opts.DryRun,
			SkipDependencyCheck: true, // ordering already enforced dependencies
		})

		output := res.Output
		if !res.Success {
			output = res.ErrorMessage
		}
		rows = append(rows, BatchRow{
			Service: req.Service,
			Name:    req.Name,
			Success: res.Success,
			Output:  output,
		})

		if !res.Success && !opts.IgnoreErrors {
			failures = append(failures, fmt.Sprintf("%s resource '%s': %s", req.Service, req.Name, res.ErrorMessage))
			break
		}
	}

	if len(failures) > 0 {
		return BatchResult{
			Success:      false,
			Rows:         rows,
			Failures:     failures,
			ErrorMessage: fmt.Sprintf("batch creation failed: %s", strings.Join(failures, ", ")),
		}
	}

	return BatchResult{Success: true, Rows: rows}
}
