package security

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azniosman/Project-Fortress/internal/service"
	"github.com/azniosman/Project-Fortress/internal/state"
)

type fakeAuth struct {
	err error
}

func (f *fakeAuth) ValidateCredentials(context.Context) error { return f.err }

func newTestHandler(t *testing.T) (*RoleHandler, *state.Store) {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewRoleHandler(store, &fakeAuth{}, nil), store
}

func TestCreateRoleWithDefaultTrustPolicy(t *testing.T) {
	h, store := newTestHandler(t)

	out := h.Execute(context.Background(), service.OpCreate, service.Params{ResourceName: "app-runtime"})
	require.True(t, out.Success, out.Err)
	assert.Equal(t, "arn:aws:iam::000000000000:role/app-runtime", out.Output.(map[string]any)["arn"])

	rec, err := store.Get(context.Background(), "iam", "app-runtime")
	require.NoError(t, err)
	assert.NotNil(t, rec.Attributes["assume_role_policy"])
}

func TestCreateRoleValidatesTrustPolicy(t *testing.T) {
	h, _ := newTestHandler(t)

	out := h.Execute(context.Background(), service.OpCreate, service.Params{
		ResourceName: "bad",
		Parameters: map[string]any{
			"assume_role_policy": map[string]any{"Version": "2012-10-17"},
		},
	})
	assert.False(t, out.Success)
	assert.Contains(t, out.Err, "invalid trust policy")
}

func TestCreateRoleRequiresName(t *testing.T) {
	h, _ := newTestHandler(t)

	out := h.Execute(context.Background(), service.OpCreate, service.Params{})
	assert.False(t, out.Success)
	assert.Equal(t, "role name is required", out.Err)
}

func TestCreateRoleDuplicate(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	require.True(t, h.Execute(ctx, service.OpCreate, service.Params{ResourceName: "taken"}).Success)

	out := h.Execute(ctx, service.OpCreate, service.Params{ResourceName: "taken"})
	assert.False(t, out.Success)
	assert.Equal(t, "role 'taken' already exists", out.Err)
}

func TestUpdateRoleRejectsBadPolicy(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	require.True(t, h.Execute(ctx, service.OpCreate, service.Params{ResourceName: "app"}).Success)

	out := h.Execute(ctx, service.OpUpdate, service.Params{
		ResourceID: "app",
		Parameters: map[string]any{
			"assume_role_policy": map[string]any{
				"Version": "2012-10-17",
				"Statement": []any{
					map[string]any{"Effect": "Maybe", "Action": "*", "Resource": "*"},
				},
			},
		},
	})
	assert.False(t, out.Success)
	assert.Contains(t, out.Err, "invalid Effect")
}

func TestDeleteAndDescribeRole(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	require.True(t, h.Execute(ctx, service.OpCreate, service.Params{ResourceName: "app"}).Success)

	out := h.Execute(ctx, service.OpDescribe, service.Params{ResourceID: "app"})
	require.True(t, out.Success)
	assert.Equal(t, "app", out.Output.(map[string]any)["role"])

	require.True(t, h.Execute(ctx, service.OpDelete, service.Params{ResourceID: "app"}).Success)

	out = h.Execute(ctx, service.OpDescribe, service.Params{ResourceID: "app"})
	assert.False(t, out.Success)
	assert.Equal(t, "role 'app' not found", out.Err)
}

func TestExportRolesTerraform(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	require.True(t, h.Execute(ctx, service.OpCreate, service.Params{ResourceName: "app-runtime"}).Success)

	dir := t.TempDir()
	out := h.Execute(ctx, service.OpExport, service.Params{ExportFormat: "terraform", OutputPath: dir})
	require.True(t, out.Success, out.Err)

	body, err := os.ReadFile(filepath.Join(dir, "iam.tf"))
	require.NoError(t, err)
	assert.Contains(t, string(body), `resource "aws_iam_role" "app_runtime"`)
	assert.Contains(t, string(body), "sts:AssumeRole")
}

func TestExportRolesCloudFormation(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	require.True(t, h.Execute(ctx, service.OpCreate, service.Params{ResourceName: "app"}).Success)

	dir := t.TempDir()
	out := h.Execute(ctx, service.OpExport, service.Params{ExportFormat: "cloudformation", OutputPath: dir})
	require.True(t, out.Success, out.Err)

	body, err := os.ReadFile(filepath.Join(dir, "iam.cf.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "AWS::IAM::Role")
}
