// Package compute implements the EC2 instance service handler.
package compute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
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

// InstanceHandler manages EC2 instance records in the local inventory.
type InstanceHandler struct {
	store  *state.Store
	auth   Authorizer
	logger *slog.Logger
}

// NewInstanceHandler builds the EC2 handler. auth may be nil when no AWS
// credentials are configured; permission checks then report that fact.
func NewInstanceHandler(store *state.Store, auth Authorizer, logger *slog.Logger) *InstanceHandler {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	return &InstanceHandler{store: store, auth: auth, logger: logger}
}

// Name implements service.Handler.
func (h *InstanceHandler) Name() string { return "ec2" }

// DisplayName implements service.Handler.
func (h *InstanceHandler) DisplayName() string { return "EC2 Instances" }

// Operations implements service.Handler.
func (h *InstanceHandler) Operations() []string {
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
func (h *InstanceHandler) Execute(ctx context.Context, operation string, p service.Params) service.Outcome {
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

func (h *InstanceHandler) create(ctx context.Context, p service.Params) service.Outcome {
	params := templateParameters(p.TemplateConfig)
	for k, v := range p.Parameters {
		params[k] = v
	}

	instanceType, _ := params["instance_type"].(string)
	if instanceType == "" {
		instanceType = "t2.micro"
	}
	if !validate.InstanceType(instanceType) {
		return service.Fail("invalid instance type '%s'", instanceType)
	}

	tags := stringMap(params["tags"])
	if err := validate.Tags(tags); err != nil {
		return service.Fail("invalid tags: %v", err)
	}

	if p.DryRun {
		return service.Ok(map[string]any{
			"dry_run":       true,
			"instance_type": instanceType,
			"name":          p.ResourceName,
		})
	}

	id := "i-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:17]
	attrs := map[string]any{
		"instance_type": instanceType,
		"state":         "running",
	}
	if len(tags) > 0 {
		attrs["tags"] = tags
	}
	if ami, ok := params["ami"].(string); ok && ami != "" {
		attrs["ami"] = ami
	}

	if err := h.store.Save(ctx, state.Record{
		Service:    h.Name(),
		ID:         id,
		Name:       p.ResourceName,
		Attributes: attrs,
	}); err != nil {
		return service.Fail("failed to record instance: %v", err)
	}

	if err := linkDependencies(ctx, h.store, state.Ref{Service: h.Name(), ID: id}, p.TemplateConfig); err != nil {
		return service.Fail("failed to record instance dependencies: %v", err)
	}

	h.logger.Info("instance created", "id", id, "type", instanceType)
	return service.Ok(map[string]any{
		"instance_id":   id,
		"instance_type": instanceType,
		"name":          p.ResourceName,
	})
}

func (h *InstanceHandler) list(ctx context.Context, p service.Params) service.Outcome {
	recs, err := h.store.List(ctx, h.Name())
	if err != nil {
		return service.Fail("failed to list instances: %v", err)
	}

	rows := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		if p.Filter != "" && !matchesFilter(rec, p.Filter) {
			continue
		}
		rows = append(rows, map[string]any{
			"instance_id":   rec.ID,
			"name":          rec.Name,
			"instance_type": rec.Attributes["instance_type"],
			"state":         rec.Attributes["state"],
			"created_at":    rec.CreatedAt,
		})
	}
	return service.Ok(rows)
}

func (h *InstanceHandler) update(ctx context.Context, p service.Params) service.Outcome {
	rec, err := h.store.Get(ctx, h.Name(), p.ResourceID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("instance '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to load instance '%s': %v", p.ResourceID, err)
	}

	if raw, ok := p.Parameters["instance_type"]; ok {
		instanceType, _ := raw.(string)
		if !validate.InstanceType(instanceType) {
			return service.Fail("invalid instance type '%s'", instanceType)
		}
	}
	if raw, ok := p.Parameters["tags"]; ok {
		if err := validate.Tags(stringMap(raw)); err != nil {
			return service.Fail("invalid tags: %v", err)
		}
	}

	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "instance_id": rec.ID})
	}

	for k, v := range p.Parameters {
		rec.Attributes[k] = v
	}
	if err := h.store.Save(ctx, rec); err != nil {
		return service.Fail("failed to update instance '%s': %v", p.ResourceID, err)
	}

	h.logger.Info("instance updated", "id", rec.ID)
	return service.Ok(map[string]any{"instance_id": rec.ID, "updated": sortedKeys(p.Parameters)})
}

func (h *InstanceHandler) delete(ctx context.Context, p service.Params) service.Outcome {
	if p.DryRun {
		return service.Ok(map[string]any{"dry_run": true, "instance_id": p.ResourceID})
	}
	if err := h.store.Delete(ctx, h.Name(), p.ResourceID); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("instance '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to delete instance '%s': %v", p.ResourceID, err)
	}
	h.logger.Info("instance deleted", "id", p.ResourceID)
	return service.Ok(map[string]any{"instance_id": p.ResourceID, "deleted": true})
}

func (h *InstanceHandler) describe(ctx context.Context, p service.Params) service.Outcome {
	rec, err := h.store.Get(ctx, h.Name(), p.ResourceID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return service.Fail("instance '%s' not found", p.ResourceID)
		}
		return service.Fail("failed to describe instance '%s': %v", p.ResourceID, err)
	}

	details := map[string]any{
		"instance_id": rec.ID,
		"name":        rec.Name,
		"created_at":  rec.CreatedAt,
	}
	for k, v := range rec.Attributes {
		details[k] = v
	}
	return service.Ok(details)
}

func (h *InstanceHandler) export(ctx context.Context, p service.Params) service.Outcome {
	recs, err := h.store.List(ctx, h.Name())
	if err != nil {
		return service.Fail("failed to list instances for export: %v", err)
	}

	var path string
	switch p.ExportFormat {
	case "terraform":
		path = filepath.Join(p.OutputPath, "ec2.tf")
		if err := writeFile(path, h.renderTerraform(recs)); err != nil {
			return service.Fail("failed to write %s: %v", path, err)
		}
	case "cloudformation":
		path = filepath.Join(p.OutputPath, "ec2.cf.yaml")
		body, err := renderCloudFormation("AWS::EC2::Instance", recs, func(rec state.Record) map[string]any {
			props := map[string]any{"InstanceType": rec.Attributes["instance_type"]}
			if ami, ok := rec.Attributes["ami"]; ok {
				props["ImageId"] = ami
			}
			return props
		})
		if err != nil {
			return service.Fail("failed to render CloudFormation: %v", err)
		}
		if err := writeFile(path, body); err != nil {
			return service.Fail("failed to write %s: %v", path, err)
		}
	default:
		return service.Fail("unsupported export format '%s'", p.ExportFormat)
	}

	h.logger.Info("instances exported", "format", p.ExportFormat, "path", path, "count", len(recs))
	return service.Ok(map[string]any{"path": path, "resources": len(recs)})
}

func (h *InstanceHandler) renderTerraform(recs []state.Record) string {
	var b strings.Builder
	for _, rec := range recs {
		fmt.Fprintf(&b, "resource \"aws_instance\" %q {\n", terraformLabel(rec))
		if ami, ok := rec.Attributes["ami"].(string); ok && ami != "" {
			fmt.Fprintf(&b, "  ami           = %q\n", ami)
		}
		fmt.Fprintf(&b, "  instance_type = %q\n", rec.Attributes["instance_type"])
		writeTerraformTags(&b, rec.Attributes["tags"])
		b.WriteString("}\n\n")
	}
	return b.String()
}

func (h *InstanceHandler) checkPermissions(ctx context.Context) service.Outcome {
	if h.auth == nil {
		return service.Fail("no AWS credentials configured")
	}
	if err := h.auth.ValidateCredentials(ctx); err != nil {
		return service.Fail("%v", err)
	}
	return service.Ok(nil)
}

// templateParameters extracts the parameters block of a resolved template.
func templateParameters(templateConfig map[string]any) map[string]any {
	out := make(map[string]any)
	if raw, ok := templateConfig["parameters"].(map[string]any); ok {
		for k, v := range raw {
			out[k] = v
		}
	}
	return out
}

// linkDependencies records runtime links for the template's dependency block.
func linkDependencies(ctx context.Context, store *state.Store, from state.Ref, templateConfig map[string]any) error {
	deps, ok := templateConfig["dependencies"].(map[string]any)
	if !ok {
		return nil
	}
	for svc, raw := range deps {
		id, ok := raw.(string)
		if !ok || id == "" {
			continue
		}
		if err := store.Link(ctx, from, state.Ref{Service: svc, ID: id}); err != nil {
			return err
		}
	}
	return nil
}

func matchesFilter(rec state.Record, filter string) bool {
	return strings.Contains(rec.ID, filter) || strings.Contains(rec.Name, filter)
}

func stringMap(raw any) map[string]string {
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

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var labelUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// terraformLabel derives a stable HCL resource label from a record.
func terraformLabel(rec state.Record) string {
	name := rec.Name
	if name == "" {
		name = rec.ID
	}
	return labelUnsafe.ReplaceAllString(name, "_")
}

func writeTerraformTags(b *strings.Builder, raw any) {
	tags := stringMap(raw)
	if len(tags) == 0 {
		return
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("  tags = {\n")
	for _, k := range keys {
		fmt.Fprintf(b, "    %s = %q\n", k, tags[k])
	}
	b.WriteString("  }\n")
}

// renderCloudFormation builds a minimal CloudFormation template for one
// resource type, using props to map a record onto resource properties.
func renderCloudFormation(cfType string, recs []state.Record, props func(state.Record) map[string]any) (string, error) {
	resources := make(map[string]any, len(recs))
	for _, rec := range recs {
		resources[cloudFormationLogicalID(rec)] = map[string]any{
			"Type":       cfType,
			"Properties": props(rec),
		}
	}
	doc := map[string]any{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Resources":                resources,
	}
	body, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

var logicalIDUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func cloudFormationLogicalID(rec state.Record) string {
	name := rec.Name
	if name == "" {
		name = rec.ID
	}
	id := logicalIDUnsafe.ReplaceAllString(name, "")
	if id == "" {
		id = "Resource"
	}
	return id
}

func writeFile(path, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}
