// Package storage implements the S3 bucket service handler.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
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

// BucketHandler manages S3 bucket records in the local inventory. Buckets are
// identified by their globally unique name, so the name doubles as the ID.
type BucketHandler struct {
	store  *state.Store
	auth   Authorizer
	logger *slog.Logger
}

// NewBucketHandler builds the S3 handler.
func NewBucketHandler(store *state.Store, auth Authorizer, logger *slog.Logger) *BucketHandler {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	return &BucketHandler{store: store, auth: auth, logger: logger}
}

// Name implements service.Handler.
func (h *BucketHandler) Name() string { return "s3" }

// DisplayName implements service.Handler.
func (h *BucketHandler) DisplayName() string { return "S3 Buckets" }

// Operations implements service.Handler.
func (h *BucketHandler) Operations() []string {
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
func (h *BucketHandler) Execute(ctx context.Context, operation string, p service.Params) service.Outcome {
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

func (h *BucketHandler) create(ctx context.Context, p service.Params) service.Outcome {
	name := p.ResourceName
	if name == "" {
		return service.Fail("bucket name is required")
	}
	if !validate.BucketName(name) {
		return service.Fail("invalid bucket name '%s'", name)
	}

	params := mergedParams(p)
	tags := tagMap(params["tags"])
	if err := validate.Tags(tags); err != nil {
		return service.Fail("invalid tags: %v", err)
	}

	if _, err := h.store.Get(ctx, h.Name(), name); err == nil {
		return service.Fail("bucket '%s' already exists", name)
	} else if !errors.Is(err, state.ErrNotFound) {
		return service.Fail("failed to check bucket '%s': %v", name, err)
	}

	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "bucket": name})
	}

	versioning, _ := params["versioning"].(bool)
	attrs := map[string]any{"versioning": versioning}
	if len(tags) > 0 {
		attrs["tags"] = tags
	}

	if err := h.store.Save(ctx, state.Record{
		Service:    h.Name(),
		ID:         name,
		Name:       name,
		Attributes: attrs,
	}); err != nil {
		return service.Fail("failed to record bucket: %v", err)
	}

	h.logger.Info("bucket created", "bucket", name, "versioning", versioning)
	return service.Ok(map[string]any{"bucket": name, "versioning": versioning})
}

func (h *BucketHandler) list(ctx context.Context, p service.Params) service.Outcome {
	recs, err := h.store.List(ctx, h.Name())
	if err != nil {
		return service.Fail("failed to list buckets: %v", err)
	}

	rows := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		if p.Filter != "" && !strings.Contains(rec.Name, p.Filter) {
			continue
		}
		rows = append(rows, map[string]any{
			"bucket":     rec.Name,
			"versioning": rec.Attributes["versioning"],
			"created_at": rec.CreatedAt,
		})
	}
	return service.Ok(rows)
}

func (h *BucketHandler) update(ctx context.Context, p service.Params) service.Outcome {
	rec, err := h.store.Get(ctx, h.Name(), p.ResourceID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("bucket '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to load bucket '%s': %v", p.ResourceID, err)
	}

	if raw, ok := p.Parameters["tags"]; ok {
		if err := validate.Tags(tagMap(raw)); err != nil {
			return service.Fail("invalid tags: %v", err)
		}
	}

	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "bucket": rec.Name})
	}

	for k, v := range p.Parameters {
		rec.Attributes[k] = v
	}
	if err := h.store.Save(ctx, rec); err != nil {
		return service.Fail("failed to update bucket '%s': %v", p.ResourceID, err)
	}

	h.logger.Info("bucket updated", "bucket", rec.Name)
	return service.Ok(map[string]any{"bucket": rec.Name})
}

func (h *BucketHandler) delete(ctx context.Context, p service.Params) service.Outcome {
	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "bucket": p.ResourceID})
	}
	if err := h.store.Delete(ctx, h.Name(), p.ResourceID); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("bucket '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to delete bucket '%s': %v", p.ResourceID, err)
	}
	h.logger.Info("bucket deleted", "bucket", p.ResourceID)
	return service.Ok(map[string]any{"bucket": p.ResourceID, "deleted": true})
}

func (h *BucketHandler) describe(ctx context.Context, p service.Params) service.Outcome {
	rec, err := h.store.Get(ctx, h.Name(), p.ResourceID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("bucket '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to describe bucket '%s': %v", p.ResourceID, err)
	}

	details := map[string]any{
		"bucket":     rec.Name,
		"created_at": rec.CreatedAt,
	}
	for k, v := range rec.Attributes {
		details[k] = v
	}
	return service.Ok(details)
}

func (h *BucketHandler) export(ctx context.Context, p service.Params) service.Outcome {
	recs, err := h.store.List(ctx, h.Name())
	if err != nil {
		return service.Fail("failed to list buckets for export: %v", err)
	}

	var path, body string
	switch p.ExportFormat {
	case "terraform":
		path = filepath.Join(p.OutputPath, "s3.tf")
		body = renderTerraform(recs)
	case "cloudformation":
		path = filepath.Join(p.OutputPath, "s3.cf.yaml")
		body, err = renderCloudFormation(recs)
		if err != nil {
			return service.Fail("failed to render CloudFormation: %v", err)
		}
	default:
		return service.Fail("unsupported export format '%s'", p.ExportFormat)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return service.Fail("failed to create export directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return service.Fail("failed to write %s: %v", path, err)
	}

	h.logger.Info("buckets exported", "format", p.ExportFormat, "path", path, "count", len(recs))
	return service.Ok(map[string]any{"path": path, "resources": len(recs)})
}

func (h *BucketHandler) checkPermissions(ctx context.Context) service.Outcome {
	if h.auth == nil {
		return service.Fail("no AWS credentials configured")
	}
	if err := h.auth.ValidateCredentials(ctx); err != nil {
		return service.Fail("%v", err)
	}
	return service.Ok(nil)
}

func mergedParams(p service.Params) map[string]any {
	out := make(map[string]any)
	if raw, ok := p.TemplateConfig["parameters"].(map[string]any); ok {
		for k, v := range raw {
			out[k] = v
		}
	}
	for k, v := range p.Parameters {
		out[k] = v
	}
	return out
}

func tagMap(raw any) map[string]string {
	out := make(map[string]string)
	switch m := raw.(type) {
	case map[string]string:
		return m
	case map[string]any:
		for k, v := range m {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func renderTerraform(recs []state.Record) string {
	var b strings.Builder
	for _, rec := range recs {
		label := strings.NewReplacer(".", "_", "-", "_").Replace(rec.Name)
		fmt.Fprintf(&b, "resource \"aws_s3_bucket\" %q {\n", label)
		fmt.Fprintf(&b, "  bucket = %q\n", rec.Name)
		if versioning, _ := rec.Attributes["versioning"].(bool); versioning {
			b.WriteString("\n  versioning {\n    enabled = true\n  }\n")
		}
		writeTags(&b, rec.Attributes["tags"])
		b.WriteString("}\n\n")
	}
	return b.String()
}

func writeTags(b *strings.Builder, raw any) {
	tags := tagMap(raw)
	if len(tags) == 0 {
		return
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("\n  tags = {\n")
	for _, k := range keys {
		fmt.Fprintf(b, "    %s = %q\n", k, tags[k])
	}
	b.WriteString("  }\n")
}

func renderCloudFormation(recs []state.Record) (string, error) {
	resources := make(map[string]any, len(recs))
	for _, rec := range recs {
		logical := strings.NewReplacer(".", "", "-", "").Replace(rec.Name)
		props := map[string]any{"BucketName": rec.Name}
		if versioning, _ := rec.Attributes["versioning"].(bool); versioning {
			props["VersioningConfiguration"] = map[string]any{"Status": "Enabled"}
		}
		resources[logical] = map[string]any{
			"Type":       "AWS::S3::Bucket",
			"Properties": props,
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
