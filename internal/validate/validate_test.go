package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceType(t *testing.T) {
	valid := []string{"t2.micro", "m5.2xlarge", "c6g.medium", "r5.24xlarge"}
	for _, v := range valid {
		assert.True(t, InstanceType(v), "expected %q to be valid", v)
	}

	invalid := []string{"", "micro", "t2micro", "T2.micro", "t2.", ".micro"}
	for _, v := range invalid {
		assert.False(t, InstanceType(v), "expected %q to be invalid", v)
	}
}

func TestBucketName(t *testing.T) {
	valid := []string{"my-bucket", "logs.example.com", "abc", "bucket-123"}
	for _, v := range valid {
		assert.True(t, BucketName(v), "expected %q to be valid", v)
	}

	invalid := []string{"", "ab", "My-Bucket", "-bucket", "bucket-", "a..b"}
	for _, v := range invalid {
		assert.False(t, BucketName(v), "expected %q to be invalid", v)
	}
}

func TestTags(t *testing.T) {
	assert.NoError(t, Tags(nil))
	assert.NoError(t, Tags(map[string]string{"Name": "web", "Env": "prod"}))
	assert.Error(t, Tags(map[string]string{" ": "x"}))
}

func TestIAMPolicy(t *testing.T) {
	good := map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{"Effect": "Allow", "Action": "s3:GetObject", "Resource": "*"},
		},
	}
	assert.NoError(t, IAMPolicy(good))

	assert.Error(t, IAMPolicy(nil))
	assert.Error(t, IAMPolicy(map[string]any{"Version": "2012-10-17"}))
	assert.Error(t, IAMPolicy(map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{"Effect": "Maybe", "Action": "s3:*", "Resource": "*"},
		},
	}))
}
