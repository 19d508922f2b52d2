package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azniosman/Project-Fortress/internal/resolver"
	"github.com/azniosman/Project-Fortress/internal/service"
	"github.com/azniosman/Project-Fortress/internal/state"
)

type fakeHandler struct {
	name    string
	ops     []string
	execute func(ctx context.Context, operation string, p service.Params) service.Outcome
}

func (h *fakeHandler) Name() string        { return h.name }
func (h *fakeHandler) DisplayName() string { return h.name }
func (h *fakeHandler) Operations() []string {
	if h.ops != nil {
		return h.ops
	}
	return []string{service.OpCreate, service.OpList, service.OpUpdate, service.OpDelete, service.OpDescribe}
}

func (h *fakeHandler) Execute(ctx context.Context, operation string, p service.Params) service.Outcome {
	if h.execute != nil {
		return h.execute(ctx, operation, p)
	}
	return service.Ok(map[string]any{"operation": operation})
}

type fakeTemplates struct {
	docs    map[string]map[string]any // "service/name" -> document
	created []TemplateResource
	path    string
	err     error
}

func (f *fakeTemplates) Template(svc, name string) (map[string]any, bool, error) {
	doc, ok := f.docs[svc+"/"+name]
	return doc, ok, nil
}

func (f *fakeTemplates) CreateFromResources(name, description string, resources []TemplateResource, outputDir string) (string, error) {
	f.created = resources
	return f.path, f.err
}

type fakeDependents struct {
	refs map[string][]state.Ref
	err  error
}

func (f *fakeDependents) DependentsOf(_ context.Context, svc, id string) ([]state.Ref, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.refs[svc+":"+id], nil
}

func newTestEngine(t *testing.T, handlers []service.Handler, templates *fakeTemplates, dependents *fakeDependents) *Engine {
	t.Helper()
	if templates == nil {
		templates = &fakeTemplates{}
	}
	if dependents == nil {
		dependents = &fakeDependents{}
	}
	return New(Options{
		Registry:   service.NewRegistry(handlers...),
		Templates:  templates,
		Resolver:   resolver.New(resolver.DefaultRules(), nil),
		Dependents: dependents,
	})
}

func TestCreateResource_HandlerNotFound(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)

	res := e.CreateResource(context.Background(), CreateOptions{Service: "ec2"})
	assert.False(t, res.Success)
	assert.Equal(t, "service handler 'ec2' not found", res.ErrorMessage)
}

func TestCreateResource_TemplateNotFound(t *testing.T) {
	e := newTestEngine(t, []service.Handler{&fakeHandler{name: "ec2"}}, &fakeTemplates{}, nil)

	res := e.CreateResource(context.Background(), CreateOptions{Service: "ec2", Template: "web"})
	assert.False(t, res.Success)
	assert.Equal(t, "template 'web' not found for service 'ec2'", res.ErrorMessage)
}

func TestCreateResource_DependencyIssuesBlock(t *testing.T) {
	handler := &fakeHandler{name: "ec2", execute: func(context.Context, string, service.Params) service.Outcome {
		t.Fatal("handler must not be invoked when preconditions fail")
		return service.Outcome{}
	}}
	e := newTestEngine(t, []service.Handler{handler}, nil, nil)

	res := e.CreateResource(context.Background(), CreateOptions{Service: "ec2"})
	assert.False(t, res.Success)
	assert.Equal(t, "dependency issues: service ec2 requires these dependencies: subnet, security_group", res.ErrorMessage)
}

func TestCreateResource_SkipDependencyCheck(t *testing.T) {
	var got service.Params
	handler := &fakeHandler{name: "ec2", execute: func(_ context.Context, op string, p service.Params) service.Outcome {
		require.Equal(t, service.OpCreate, op)
		got = p
		return service.Ok("i-123")
	}}
	e := newTestEngine(t, []service.Handler{handler}, nil, nil)

	res := e.CreateResource(context.Background(), CreateOptions{
		Service:             "ec2",
		Name:                "web",
		SkipDependencyCheck: true,
	})
	require.True(t, res.Success)
	assert.Equal(t, "i-123", res.Output)
	assert.Equal(t, "web", got.ResourceName)
}

func TestCreateResource_TemplateSatisfiesDependencies(t *testing.T) {
	templates := &fakeTemplates{docs: map[string]map[string]any{
		"ec2/web": {
			"dependencies": map[string]any{
				"subnet":         "subnet-1",
				"security_group": "sg-1",
			},
			"parameters": map[string]any{"InstanceType": "t2.micro"},
		},
	}}
	var got service.Params
	handler := &fakeHandler{name: "ec2", execute: func(_ context.Context, _ string, p service.Params) service.Outcome {
		got = p
		return service.Ok("i-456")
	}}
	e := newTestEngine(t, []service.Handler{handler}, templates, nil)

	res := e.CreateResource(context.Background(), CreateOptions{Service: "ec2", Template: "web"})
	require.True(t, res.Success)
	require.NotNil(t, got.TemplateConfig)
	assert.Contains(t, got.TemplateConfig, "parameters")
}

func TestCreateResource_HandlerPanicIsContained(t *testing.T) {
	handler := &fakeHandler{name: "s3", execute: func(context.Context, string, service.Params) service.Outcome {
		panic("boom")
	}}
	e := newTestEngine(t, []service.Handler{handler}, nil, nil)

	res := e.CreateResource(context.Background(), CreateOptions{Service: "s3"})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "internal fault in s3 handler")
	assert.Contains(t, res.ErrorMessage, "boom")
}

func TestDeleteResource_RefusedWhileDependentsExist(t *testing.T) {
	handler := &fakeHandler{name: "vpc", execute: func(context.Context, string, service.Params) service.Outcome {
		t.Fatal("handler must not be invoked while dependents exist")
		return service.Outcome{}
	}}
	dependents := &fakeDependents{refs: map[string][]state.Ref{
		"vpc:vpc-1": {{Service: "subnet", ID: "subnet-1"}, {Service: "subnet", ID: "subnet-2"}},
	}}
	e := newTestEngine(t, []service.Handler{handler}, nil, dependents)

	res := e.DeleteResource(context.Background(), DeleteOptions{Service: "vpc", ResourceID: "vpc-1"})
	assert.False(t, res.Success)
	assert.Equal(t, "cannot delete: resource has dependents: subnet:subnet-1, subnet:subnet-2", res.ErrorMessage)
}

func TestDeleteResource_SkipDependencyCheckProceeds(t *testing.T) {
	invoked := false
	handler := &fakeHandler{name: "vpc", execute: func(_ context.Context, op string, _ service.Params) service.Outcome {
		invoked = true
		require.Equal(t, service.OpDelete, op)
		return service.Ok(nil)
	}}
	dependents := &fakeDependents{refs: map[string][]state.Ref{
		"vpc:vpc-1": {{Service: "subnet", ID: "subnet-1"}},
	}}
	e := newTestEngine(t, []service.Handler{handler}, nil, dependents)

	res := e.DeleteResource(context.Background(), DeleteOptions{
		Service:             "vpc",
		ResourceID:          "vpc-1",
		SkipDependencyCheck: true,
	})
	assert.True(t, res.Success)
	assert.True(t, invoked)
}

func TestDeleteResource_DependentsLookupError(t *testing.T) {
	e := newTestEngine(t,
		[]service.Handler{&fakeHandler{name: "vpc"}},
		nil,
		&fakeDependents{err: errors.New("state store unavailable")},
	)

	res := e.DeleteResource(context.Background(), DeleteOptions{Service: "vpc", ResourceID: "vpc-1"})
	assert.False(t, res.Success)
	assert.Equal(t, "state store unavailable", res.ErrorMessage)
}

// batchHandlers returns three dependency-free handlers where the middle one fails.
func batchHandlers() []service.Handler {
	ok := func(name string) *fakeHandler {
		return &fakeHandler{name: name, execute: func(_ context.Context, _ string, p service.Params) service.Outcome {
			return service.Ok(name + " created")
		}}
	}
	failing := &fakeHandler{name: "s3", execute: func(context.Context, string, service.Params) service.Outcome {
		return service.Fail("bucket name already taken")
	}}
	return []service.Handler{ok("sns"), failing, ok("sqs")}
}

func batchRequests() []resolver.Request {
	return []resolver.Request{
		{Service: "sns", Name: "topic"},
		{Service: "s3", Name: "logs"},
		{Service: "sqs", Name: "queue"},
	}
}

func TestBatchCreate_StopsAtFirstFailure(t *testing.T) {
	e := newTestEngine(t, batchHandlers(), nil, nil)

	res := e.BatchCreate(context.Background(), batchRequests(), BatchOptions{})
	assert.False(t, res.Success)
	require.Len(t, res.Rows, 2)
	assert.True(t, res.Rows[0].Success)
	assert.Equal(t, "sns", res.Rows[0].Service)
	assert.False(t, res.Rows[1].Success)
	assert.Equal(t, "s3", res.Rows[1].Service)
	assert.Contains(t, res.ErrorMessage, "batch creation failed")
	assert.Contains(t, res.ErrorMessage, "s3 resource 'logs': bucket name already taken")
}

func TestBatchCreate_IgnoreErrorsRunsToCompletion(t *testing.T) {
	e := newTestEngine(t, batchHandlers(), nil, nil)

	res := e.BatchCreate(context.Background(), batchRequests(), BatchOptions{IgnoreErrors: true})
	assert.True(t, res.Success)
	require.Len(t, res.Rows, 3)
	assert.True(t, res.Rows[0].Success)
	assert.False(t, res.Rows[1].Success)
	assert.Equal(t, "bucket name already taken", res.Rows[1].Output)
	assert.True(t, res.Rows[2].Success)
	assert.Empty(t, res.ErrorMessage)
}

func TestBatchCreate_OrdersByDependencies(t *testing.T) {
	var order []string
	record := func(name string) *fakeHandler {
		return &fakeHandler{name: name, execute: func(context.Context, string, service.Params) service.Outcome {
			order = append(order, name)
			return service.Ok(nil)
		}}
	}
	e := newTestEngine(t, []service.Handler{record("vpc"), record("subnet"), record("ec2"), record("security_group")}, nil, nil)

	res := e.BatchCreate(context.Background(), []resolver.Request{
		{Service: "ec2", Name: "web"},
		{Service: "subnet", Name: "net"},
		{Service: "security_group", Name: "sg"},
		{Service: "vpc", Name: "main"},
	}, BatchOptions{})

	require.True(t, res.Success)
	require.Equal(t, []string{"vpc", "subnet", "security_group", "ec2"}, order)
}

func TestBatchCreateFile_LoaderErrors(t *testing.T) {
	e := New(Options{
		Registry:  service.NewRegistry(),
		Resolver:  resolver.New(resolver.DefaultRules(), nil),
		Templates: &fakeTemplates{},
		LoadBatch: func(string) ([]resolver.Request, error) {
			return nil, errors.New("file not found")
		},
	})

	res := e.BatchCreateFile(context.Background(), "missing.yaml", BatchOptions{})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "failed to load batch configuration")
}

func exportHandler(name string, err string) *fakeHandler {
	return &fakeHandler{
		name: name,
		ops:  []string{service.OpCreate, service.OpExport},
		execute: func(_ context.Context, op string, _ service.Params) service.Outcome {
			if err != "" {
				return service.Fail("%s", err)
			}
			return service.Ok(name + ".tf")
		},
	}
}

func TestExport_AllSucceed(t *testing.T) {
	e := newTestEngine(t, []service.Handler{
		exportHandler("ec2", ""),
		exportHandler("iam", ""),
		exportHandler("s3", ""),
	}, nil, nil)

	res := e.Export(context.Background(), ExportOptions{Format: "terraform", OutputPath: "/tmp/out"})
	require.True(t, res.Success)

	summary, ok := res.Output.(ExportSummary)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"ec2", "iam", "s3"}, summary.Successful)
	assert.Empty(t, summary.Failed)
}

func TestExport_PartialFailure(t *testing.T) {
	e := newTestEngine(t, []service.Handler{
		exportHandler("ec2", ""),
		exportHandler("iam", "access denied"),
		exportHandler("s3", ""),
	}, nil, nil)

	res := e.Export(context.Background(), ExportOptions{Format: "terraform", OutputPath: "/tmp/out"})
	assert.False(t, res.Success)
	assert.Equal(t, "export partially failed: iam: access denied", res.ErrorMessage)

	summary, ok := res.Output.(ExportSummary)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"ec2", "s3"}, summary.Successful)
	assert.Equal(t, map[string]string{"iam": "access denied"}, summary.Failed)
}

func TestExport_NoCapableHandlers(t *testing.T) {
	e := newTestEngine(t, []service.Handler{&fakeHandler{name: "sns"}}, nil, nil)

	res := e.Export(context.Background(), ExportOptions{Format: "terraform"})
	assert.False(t, res.Success)
	assert.Equal(t, "no service handlers support exporting to terraform", res.ErrorMessage)
}

func TestCheckPermissions_CollectsIssuesAndSkipsIncapable(t *testing.T) {
	capable := &fakeHandler{
		name: "ec2",
		ops:  []string{service.OpCreate, service.OpCheckPermissions},
		execute: func(context.Context, string, service.Params) service.Outcome {
			return service.Fail("missing ec2:RunInstances")
		},
	}
	healthy := &fakeHandler{
		name: "s3",
		ops:  []string{service.OpCreate, service.OpCheckPermissions},
		execute: func(context.Context, string, service.Params) service.Outcome {
			return service.Ok(nil)
		},
	}
	incapable := &fakeHandler{name: "sns", execute: func(context.Context, string, service.Params) service.Outcome {
		panic("must not be invoked")
	}}

	e := newTestEngine(t, []service.Handler{capable, healthy, incapable}, nil, nil)

	issues := e.CheckPermissions(context.Background())
	require.Len(t, issues, 1)
	assert.Equal(t, "ec2: missing ec2:RunInstances", issues[0])
}

func TestCreateTemplate_InvalidReference(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)

	res := e.CreateTemplate(context.Background(), "golden", "", []string{"i-12345"}, "")
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "expected 'service:id'")
}

func TestCreateTemplate_CapturesDescribeOutput(t *testing.T) {
	handler := &fakeHandler{name: "ec2", execute: func(_ context.Context, op string, p service.Params) service.Outcome {
		require.Equal(t, service.OpDescribe, op)
		return service.Ok(map[string]any{"InstanceId": p.ResourceID, "InstanceType": "t2.micro"})
	}}
	templates := &fakeTemplates{path: "/templates/ec2/golden.yaml"}
	e := newTestEngine(t, []service.Handler{handler}, templates, nil)

	res := e.CreateTemplate(context.Background(), "golden", "captured", []string{"ec2:i-1"}, "")
	require.True(t, res.Success)
	assert.Equal(t, "/templates/ec2/golden.yaml", res.Output)
	require.Len(t, templates.created, 1)
	assert.Equal(t, "ec2", templates.created[0].Service)
	assert.Equal(t, "i-1", templates.created[0].ID)
	assert.Equal(t, "t2.micro", templates.created[0].Details["InstanceType"])
}

func TestCreateTemplate_DescribeFailure(t *testing.T) {
	handler := &fakeHandler{name: "ec2", execute: func(context.Context, string, service.Params) service.Outcome {
		return service.Fail("instance not found")
	}}
	e := newTestEngine(t, []service.Handler{handler}, nil, nil)

	res := e.CreateTemplate(context.Background(), "golden", "", []string{"ec2:i-404"}, "")
	assert.False(t, res.Success)
	assert.Equal(t, fmt.Sprintf("failed to get details for %s: instance not found", "ec2:i-404"), res.ErrorMessage)
}
