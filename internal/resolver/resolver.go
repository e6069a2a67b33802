// Package resolver implements the identity-resolve stage: joining
// aggregated worker rows against the identity directory to recover
// human-readable usernames.
package resolver

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"

	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/pkg/types"
)

// DirectoryUser is one identity-directory account.
type DirectoryUser struct {
	Username string
	Sub      string
}

// IdentityDirectory abstracts the identity-directory collaborator.
// Implementations include Cognito user pools and an in-memory fake for
// testing.
type IdentityDirectory interface {
	// FindUsersBySubject returns the users in poolID whose stable
	// subject attribute equals sub. Zero or one match is expected.
	FindUsersBySubject(ctx context.Context, poolID, sub string) ([]DirectoryUser, error)
}

// CognitoDirectory implements IdentityDirectory against the Cognito
// ListUsers API.
type CognitoDirectory struct {
	client *cognitoidentityprovider.Client
}

// NewCognitoDirectory creates a Cognito-backed identity directory.
func NewCognitoDirectory(ctx context.Context, region string) (*CognitoDirectory, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &CognitoDirectory{client: cognitoidentityprovider.NewFromConfig(awsCfg)}, nil
}

// NewCognitoDirectoryWithClient creates a directory with a
// pre-configured Cognito client.
func NewCognitoDirectoryWithClient(client *cognitoidentityprovider.Client) *CognitoDirectory {
	return &CognitoDirectory{client: client}
}

// FindUsersBySubject lists pool users filtered on the sub attribute.
func (d *CognitoDirectory) FindUsersBySubject(ctx context.Context, poolID, sub string) ([]DirectoryUser, error) {
	out, err := d.client.ListUsers(ctx, &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(poolID),
		Filter:     aws.String(fmt.Sprintf("sub = %q", sub)),
	})
	if err != nil {
		return nil, err
	}

	users := make([]DirectoryUser, 0, len(out.Users))
	for _, u := range out.Users {
		user := DirectoryUser{Username: aws.ToString(u.Username)}
		for _, attr := range u.Attributes {
			if aws.ToString(attr.Name) == "sub" {
				user.Sub = aws.ToString(attr.Value)
			}
		}
		users = append(users, user)
	}
	return users, nil
}

// Resolver joins aggregated rows against an identity directory.
type Resolver struct {
	directory  IdentityDirectory
	maxRetries int
}

// New creates a resolver. maxRetries bounds retries per row for
// transient lookup failures; values below 0 are treated as 0.
func New(directory IdentityDirectory, maxRetries int) *Resolver {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Resolver{directory: directory, maxRetries: maxRetries}
}

// Resolve populates the username of each row from the directory,
// scoped to poolID. The result always has exactly one output row per
// input row: a subject with no directory match keeps an empty username
// (deprovisioned workers are expected, not errors), and a lookup that
// keeps failing after bounded retries is logged and left unresolved
// rather than aborting the pass for everyone else.
func (r *Resolver) Resolve(ctx context.Context, rows []types.AggregatedRow, poolID string) []types.AggregatedRow {
	resolved := make([]types.AggregatedRow, len(rows))
	for i, row := range rows {
		resolved[i] = row

		users, err := r.lookupWithRetry(ctx, poolID, row.Sub)
		if err != nil {
			log.Printf("resolve: giving up: %v", err)
			continue
		}

		if len(users) == 0 {
			// Deleted or deprovisioned worker.
			continue
		}
		if len(users) > 1 {
			log.Printf("resolve: subject %s matched %d users in pool %s, using first",
				row.Sub, len(users), poolID)
		}
		resolved[i].Username = users[0].Username
	}
	return resolved
}

// lookupWithRetry queries the directory with bounded exponential backoff.
func (r *Resolver) lookupWithRetry(ctx context.Context, poolID, sub string) ([]DirectoryUser, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		users, err := r.directory.FindUsersBySubject(ctx, poolID, sub)
		if err == nil {
			return users, nil
		}
		lastErr = err

		if attempt < r.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, errors.NewResolveError(errors.CodeLookupFailed,
		fmt.Sprintf("subject %s in pool %s after %d attempts", sub, poolID, r.maxRetries+1), lastErr)
}
