// Package validate contains input validation helpers shared by the service handlers.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	instanceTypePattern = regexp.MustCompile(`^[a-z]+\d+\.[a-z0-9]+$`)
	bucketNamePattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
)

// InstanceType reports whether the value looks like a valid EC2 instance type
// (e.g. "t2.micro", "m5.2xlarge").
func InstanceType(value string) bool {
	return instanceTypePattern.MatchString(value)
}

// BucketName reports whether the value is a valid S3 bucket name.
func BucketName(value string) bool {
	if !bucketNamePattern.MatchString(value) {
		return false
	}
	return !strings.Contains(value, "..")
}

// Tags checks that every tag key and value is non-empty and within AWS limits.
func Tags(tags map[string]string) error {
	for k, v := range tags {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("tag key must not be empty")
		}
		if len(k) > 128 {
			return fmt.Errorf("tag key %q exceeds 128 characters", k)
		}
		if len(v) > 256 {
			return fmt.Errorf("tag value for %q exceeds 256 characters", k)
		}
	}
	return nil
}

// IAMPolicy checks the minimal shape of an IAM policy document: a Version
// field and at least one statement with Effect, Action and Resource.
func IAMPolicy(doc map[string]any) error {
	if doc == nil {
		return fmt.Errorf("policy document is empty")
	}
	if _, ok := doc["Version"].(string); !ok {
		return fmt.Errorf("policy document is missing Version")
	}

	statements, ok := doc["Statement"].([]any)
	if !ok || len(statements) == 0 {
		return fmt.Errorf("policy document has no statements")
	}

	for i, raw := range statements {
		stmt, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("statement %d is not an object", i)
		}
		for _, field := range []string{"Effect", "Action", "Resource"} {
			if _, present := stmt[field]; !present {
				return fmt.Errorf("statement %d is missing %s", i, field)
			}
		}
		if effect, _ := stmt["Effect"].(string); effect != "Allow" && effect != "Deny" {
			return fmt.Errorf("statement %d has invalid Effect %q", i, stmt["Effect"])
		}
	}
	return nil
}
