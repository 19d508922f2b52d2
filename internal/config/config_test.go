package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azniosman/Project-Fortress/internal/env"
)

func TestLoadSettings_CreatesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings, vars, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "info", settings.General.LogLevel)
	assert.Equal(t, "us-east-1", settings.AWS.Region)
	assert.Equal(t, "default", settings.AWS.Profile)
	assert.True(t, settings.UI.ConfirmPrompts)
	assert.NotEmpty(t, vars)

	// The defaults must have been persisted for the next run.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadSettings_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
general:
  log_level: debug
  state_file: /tmp/fortress.db
aws:
  region: eu-west-1
  profile: staging
templates:
  directory: /tmp/templates
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, _, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", settings.General.LogLevel)
	assert.Equal(t, "eu-west-1", settings.AWS.Region)
	assert.Equal(t, "staging", settings.AWS.Profile)
	assert.Equal(t, "/tmp/templates", settings.Templates.Directory)
}

func TestTemplateStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewTemplateStore(dir, nil)

	path := filepath.Join(dir, "ec2")
	require.NoError(t, os.MkdirAll(path, 0o755))
	template := `
description: small web server
parameters:
  InstanceType: t2.micro
dependencies:
  subnet: subnet-1234
  security_group: sg-5678
`
	require.NoError(t, os.WriteFile(filepath.Join(path, "web.yaml"), []byte(template), 0o644))

	doc, found, err := store.Template("ec2", "web")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "small web server", doc["description"])

	deps, ok := doc["dependencies"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, deps, "subnet")

	_, found, err = store.Template("ec2", "absent")
	require.NoError(t, err)
	assert.False(t, found)

	available, err := store.Available("")
	require.NoError(t, err)
	require.Contains(t, available, "ec2")
	require.Len(t, available["ec2"], 1)
	assert.Equal(t, "web", available["ec2"][0].Name)
	assert.Equal(t, "small web server", available["ec2"][0].Description)
}

func TestTemplateStore_CreateFromResources(t *testing.T) {
	dir := t.TempDir()
	store := NewTemplateStore(dir, nil)

	path, err := store.CreateFromResources("golden", "captured stack", []ResourceDetail{
		{Service: "ec2", ID: "i-1", Details: map[string]any{"InstanceType": "t2.micro"}},
		{Service: "s3", ID: "bucket-1", Details: map[string]any{"Versioning": true}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ec2", "golden.yaml"), path)

	doc, found, err := store.Template("s3", "golden")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "captured stack", doc["description"])
}

func TestLoadBatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	content := `
resources:
  - service: vpc
    name: main
  - service: subnet
    name: ${SUBNET_NAME}
  - service: ec2
    name: web
    template: web-server
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	requests, err := LoadBatchFile(path, env.Vars{"SUBNET_NAME": "private-a"})
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, "vpc", requests[0].Service)
	assert.Equal(t, "private-a", requests[1].Name)
	assert.Equal(t, "web-server", requests[2].Template)
}

func TestLoadBatchFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("resources: []"), 0o644))
	_, err := LoadBatchFile(empty, nil)
	assert.ErrorContains(t, err, "no resources")

	missing := filepath.Join(dir, "missing-service.yaml")
	require.NoError(t, os.WriteFile(missing, []byte("resources:\n  - name: x"), 0o644))
	_, err = LoadBatchFile(missing, nil)
	assert.ErrorContains(t, err, "has no service")
}
