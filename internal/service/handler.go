// Package service defines the capability contract implemented by per-resource
// handlers and the registry that maps resource types to them.
package service

import (
	"context"
	"fmt"
)

// Operation names understood by fortress handlers. A handler advertises the
// subset it supports through Operations.
const (
	OpCreate           = "create"
	OpList             = "list"
	OpUpdate           = "update"
	OpDelete           = "delete"
	OpDescribe         = "describe"
	OpExport           = "export"
	OpCheckPermissions = "check_permissions"
)

// Params carries the normalized parameters for a single handler operation.
// Handlers read only the fields relevant to the operation at hand.
type Params struct {
	// ResourceName is the optional human label for create operations.
	ResourceName string
	// ResourceID identifies an existing resource for update/delete/describe.
	ResourceID string
	// TemplateConfig is the resolved template blob, passed through verbatim.
	TemplateConfig map[string]any
	// Parameters holds update parameters keyed by attribute name.
	Parameters map[string]any
	// Filter is an optional filter expression for list operations.
	Filter string
	// DryRun validates the operation without performing it.
	DryRun bool
	// ExportFormat selects the IaC dialect for export (terraform, cloudformation).
	ExportFormat string
	// OutputPath is the destination directory for export.
	OutputPath string
	// Region optionally scopes export and permission checks.
	Region string
}

// Outcome is the uniform result of a handler operation. Success implies an
// empty Err; a failed outcome may still carry advisory Output.
type Outcome struct {
	Success bool
	Output  any
	Err     string
}

// Ok builds a successful outcome carrying the given output.
func Ok(output any) Outcome {
	return Outcome{Success: true, Output: output}
}

// Fail builds a failed outcome with a formatted error message.
func Fail(format string, args ...any) Outcome {
	return Outcome{Success: false, Err: fmt.Sprintf(format, args...)}
}

// Unsupported is the outcome a handler returns for an operation it does not
// implement. Handlers must return this rather than panic.
func Unsupported(operation, service string) Outcome {
	return Fail("operation '%s' not supported by %s service handler", operation, service)
}

// Handler is the pluggable component that performs operations for one
// resource type. The engine only ever calls through this interface and never
// inspects concrete types.
type Handler interface {
	// Name returns the resource type key (e.g. "ec2").
	Name() string
	// DisplayName returns the human-readable service name (e.g. "EC2 Instances").
	DisplayName() string
	// Operations declares which operation names this handler supports.
	Operations() []string
	// Execute runs one operation. It must return a failed Outcome rather
	// than an error or panic for unsupported operations and remote faults.
	Execute(ctx context.Context, operation string, p Params) Outcome
}

// Supports reports whether a handler advertises the given operation.
func Supports(h Handler, operation string) bool {
	for _, op := range h.Operations() {
		if op == operation {
			return true
		}
	}
	return false
}
