// Package security implements the IAM role service handler.
package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/azniosman/Project-Fortress/internal/logging"
	"github.com/azniosman/Project-Fortress/internal/service"
	"github.com/azniosman/Project-Fortress/internal/state"
	"github.com/azniosman/Project-Fortress/internal/validate"
)

// Authorizer answers whether the configured AWS credentials are usable.
type Authorizer interface {
	ValidateCredentials(ctx context.Context) error
}

// defaultAssumeRolePolicy is used when a role is created without an explicit
// trust policy.
var defaultAssumeRolePolicy = map[string]any{
	"Version": "2012-10-17",
	"Statement": []any{
		map[string]any{
			"Effect":    "Allow",
			"Action":    "sts:AssumeRole",
			"Resource":  "*",
			"Principal": map[string]any{"Service": "ec2.amazonaws.com"},
		},
	},
}

// RoleHandler manages IAM role records in the local inventory. Roles are
// identified by name.
type RoleHandler struct {
	store  *state.Store
	auth   Authorizer
	logger *slog.Logger
}

// NewRoleHandler builds the IAM handler.
func NewRoleHandler(store *state.Store, auth Authorizer, logger *slog.Logger) *RoleHandler {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	return &RoleHandler{store: store, auth: auth, logger: logger}
}

// Name implements service.Handler.
func (h *RoleHandler) Name() string { return "iam" }

// DisplayName implements service.Handler.
func (h *RoleHandler) DisplayName() string { return "IAM Roles" }

// Operations implements service.Handler.
func (h *RoleHandler) Operations() []string {
	return []string{
		service.OpCreate,
		service.OpList,
		service.OpUpdate,
		service.OpDelete,
		service.OpDescribe,
		service.OpExport,
		service.OpCheckPermissions,
	}
}

// Execute implements service.Handler.
func (h *RoleHandler) Execute(ctx context.Context, operation string, p service.Params) service.Outcome {
	switch operation {
	case service.OpCreate:
		return h.create(ctx, p)
	case service.OpList:
		return h.list(ctx, p)
	case service.OpUpdate:
		return h.update(ctx, p)
	case service.OpDelete:
		return h.delete(ctx, p)
	case service.OpDescribe:
		return h.describe(ctx, p)
	case service.OpExport:
		return h.export(ctx, p)
	case service.OpCheckPermissions:
		return h.checkPermissions(ctx)
	default:
		return service.Unsupported(operation, h.Name())
	}
}

func (h *RoleHandler) create(ctx context.Context, p service.Params) service.Outcome {
	name := p.ResourceName
	if name == "" {
		return service.Fail("role name is required")
	}

	params := make(map[string]any)
	if raw, ok := p.TemplateConfig["parameters"].(map[string]any); ok {
		for k, v := range raw {
			params[k] = v
		}
	}
	for k, v := range p.Parameters {
		params[k] = v
	}

	policy := defaultAssumeRolePolicy
	if raw, ok := params["assume_role_policy"].(map[string]any); ok {
		policy = raw
	}
	if err := validate.IAMPolicy(policy); err != nil {
		return service.Fail("invalid trust policy: %v", err)
	}

	if _, err := h.store.Get(ctx, h.Name(), name); err == nil {
		return service.Fail("role '%s' already exists", name)
	} else if !errors.Is(err, state.ErrNotFound) {
		return service.Fail("failed to check role '%s': %v", name, err)
	}

	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "role": name})
	}

	attrs := map[string]any{
		"assume_role_policy": policy,
		"arn":                fmt.Sprintf("arn:aws:iam::000000000000:role/%s", name),
	}
	if desc, ok := params["description"].(string); ok && desc != "" {
		attrs["description"] = desc
	}

	if err := h.store.Save(ctx, state.Record{
		Service:    h.Name(),
		ID:         name,
		Name:       name,
		Attributes: attrs,
	}); err != nil {
		return service.Fail("failed to record role: %v", err)
	}

	h.logger.Info("role created", "role", name)
	return service.Ok(map[string]any{"role": name, "arn": attrs["arn"]})
}

func (h *RoleHandler) list(ctx context.Context, p service.Params) service.Outcome {
	recs, err := h.store.List(ctx, h.Name())
	if err != nil {
		return service.Fail("failed to list roles: %v", err)
	}

	rows := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		if p.Filter != "" && !strings.Contains(rec.Name, p.Filter) {
			continue
		}
		rows = append(rows, map[string]any{
			"role":       rec.Name,
			"arn":        rec.Attributes["arn"],
			"created_at": rec.CreatedAt,
		})
	}
	return service.Ok(rows)
}

func (h *RoleHandler) update(ctx context.Context, p service.Params) service.Outcome {
	rec, err := h.store.Get(ctx, h.Name(), p.ResourceID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("role '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to load role '%s': %v", p.ResourceID, err)
	}

	if raw, ok := p.Parameters["assume_role_policy"]; ok {
		policy, _ := raw.(map[string]any)
		if err := validate.IAMPolicy(policy); err != nil {
			return service.Fail("invalid trust policy: %v", err)
		}
	}

	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "role": rec.Name})
	}

	for k, v := range p.Parameters {
		rec.Attributes[k] = v
	}
	if err := h.store.Save(ctx, rec); err != nil {
		return service.Fail("failed to update role '%s': %v", p.ResourceID, err)
	}

	h.logger.Info("role updated", "role", rec.Name)
	return service.Ok(map[string]any{"role": rec.Name})
}

func (h *RoleHandler) delete(ctx context.Context, p service.Params) service.Outcome {
	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "role": p.ResourceID})
	}
	if err := h.store.Delete(ctx, h.Name(), p.ResourceID); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("role '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to delete role '%s': %v", p.ResourceID, err)
	}
	h.logger.Info("role deleted", "role", p.ResourceID)
	return service.Ok(map[string]any{"role": p.ResourceID, "deleted": true})
}

func (h *RoleHandler) describe(ctx context.Context, p service.Params) service.Outcome {
	rec, err := h.store.Get(ctx, h.Name(), p.ResourceID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("role '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to describe role '%s': %v", p.ResourceID, err)
	}

	details := map[string]any{
		"role":       rec.Name,
		"created_at": rec.CreatedAt,
	}
	for k, v := range rec.Attributes {
		details[k] = v
	}
	return service.Ok(details)
}

func (h *RoleHandler) export(ctx context.Context, p service.Params) service.Outcome {
	recs, err := h.store.List(ctx, h.Name())
	if err != nil {
		return service.Fail("failed to list roles for export: %v", err)
	}

	var path, body string
	switch p.ExportFormat {
	case "terraform":
		path = filepath.Join(p.OutputPath, "iam.tf")
		body, err = renderTerraform(recs)
	case "cloudformation":
		path = filepath.Join(p.OutputPath, "iam.cf.yaml")
		body, err = renderCloudFormation(recs)
	default:
		return service.Fail("unsupported export format '%s'", p.ExportFormat)
	}
	if err != nil {
		return service.Fail("failed to render %s export: %v", p.ExportFormat, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return service.Fail("failed to create export directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return service.Fail("failed to write %s: %v", path, err)
	}

	h.logger.Info("roles exported", "format", p.ExportFormat, "path", path, "count", len(recs))
	return service.Ok(map[string]any{"path": path, "resources": len(recs)})
}

func (h *RoleHandler) checkPermissions(ctx context.Context) service.Outcome {
	if h.auth == nil {
		return service.Fail("no AWS credentials configured")
	}
	if err := h.auth.ValidateCredentials(ctx); err != nil {
		return service.Fail("%v", err)
	}
	return service.Ok(nil)
}

func renderTerraform(recs []state.Record) (string, error) {
	var b strings.Builder
	for _, rec := range recs {
		policy, err := json.MarshalIndent(rec.Attributes["assume_role_policy"], "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode trust policy for role %s: %w", rec.Name, err)
		}
		label := strings.NewReplacer("-", "_", ".", "_").Replace(rec.Name)
		fmt.Fprintf(&b, "resource \"aws_iam_role\" %q {\n", label)
		fmt.Fprintf(&b, "  name = %q\n\n", rec.Name)
		fmt.Fprintf(&b, "  assume_role_policy = <<POLICY\n%s\nPOLICY\n", policy)
		b.WriteString("}\n\n")
	}
	return b.String(), nil
}

func renderCloudFormation(recs []state.Record) (string, error) {
	resources := make(map[string]any, len(recs))
	for _, rec := range recs {
		logical := strings.NewReplacer("-", "", ".", "", "_", "").Replace(rec.Name)
		resources[logical] = map[string]any{
			"Type": "AWS::IAM::Role",
			"Properties": map[string]any{
				"RoleName":                 rec.Name,
				"AssumeRolePolicyDocument": rec.Attributes["assume_role_policy"],
			},
		}
	}
	body, err := yaml.Marshal(map[string]any{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Resources":                resources,
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}
