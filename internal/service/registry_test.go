package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	name string
	ops  []string
}

func (h *stubHandler) Name() string         { return h.name }
func (h *stubHandler) DisplayName() string  { return h.name }
func (h *stubHandler) Operations() []string { return h.ops }
func (h *stubHandler) Execute(context.Context, string, Params) Outcome {
	return Ok(nil)
}

func TestRegistryLookup(t *testing.T) {
	ec2 := &stubHandler{name: "ec2"}
	reg := NewRegistry(ec2, &stubHandler{name: "s3"})

	h, ok := reg.Lookup("ec2")
	require.True(t, ok)
	assert.Same(t, ec2, h)

	_, ok = reg.Lookup("rds")
	assert.False(t, ok)
}

func TestRegistryDuplicateNameLastWins(t *testing.T) {
	first := &stubHandler{name: "s3"}
	second := &stubHandler{name: "s3"}
	reg := NewRegistry(first, second)

	h, ok := reg.Lookup("s3")
	require.True(t, ok)
	assert.Same(t, second, h)
}

func TestRegistryAllAndNamesSorted(t *testing.T) {
	reg := NewRegistry(
		&stubHandler{name: "s3"},
		&stubHandler{name: "ec2"},
		&stubHandler{name: "iam"},
	)

	assert.Equal(t, []string{"ec2", "iam", "s3"}, reg.Names())

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "ec2", all[0].Name())
	assert.Equal(t, "s3", all[2].Name())
}

func TestSupports(t *testing.T) {
	h := &stubHandler{name: "ec2", ops: []string{OpCreate, OpExport}}
	assert.True(t, Supports(h, OpExport))
	assert.False(t, Supports(h, OpDelete))
}

func TestUnsupportedMessage(t *testing.T) {
	out := Unsupported(OpExport, "sns")
	assert.False(t, out.Success)
	assert.Equal(t, "operation 'export' not supported by sns service handler", out.Err)
}
