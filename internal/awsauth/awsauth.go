// Package awsauth validates AWS credentials and resolves the caller identity
// used by handler permission checks.
package awsauth

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// IdentityAPI is the subset of the STS client used by fortress.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity describes the AWS principal the current credentials resolve to.
type Identity struct {
	Account string
	ARN     string
	UserID  string
}

// Checker answers credential and identity questions against STS.
type Checker struct {
	client IdentityAPI
}

// NewChecker loads the default AWS configuration chain for the given region
// and profile and returns a Checker backed by a real STS client.
func NewChecker(ctx context.Context, region, profile string) (*Checker, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	return &Checker{client: sts.NewFromConfig(cfg)}, nil
}

// NewCheckerFromClient wraps an existing STS client. Intended for tests.
func NewCheckerFromClient(client IdentityAPI) *Checker {
	return &Checker{client: client}
}

// CallerIdentity resolves the current AWS principal.
func (c *Checker) CallerIdentity(ctx context.Context) (Identity, error) {
	out, err := c.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("get caller identity: %w", err)
	}

	var id Identity
	if out.Account != nil {
		id.Account = *out.Account
	}
	if out.Arn != nil {
		id.ARN = *out.Arn
	}
	if out.UserId != nil {
		id.UserID = *out.UserId
	}
	return id, nil
}

// ValidateCredentials reports whether the configured credentials can make a
// basic signed call. It is used as a startup diagnostic.
func (c *Checker) ValidateCredentials(ctx context.Context) error {
	if _, err := c.CallerIdentity(ctx); err != nil {
		return fmt.Errorf("AWS credentials are not usable: %w", err)
	}
	return nil
}
