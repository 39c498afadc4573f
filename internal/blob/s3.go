package blob

import (
	"context"

	"protoforge/internal/infra/blob/s3"
)

// OpenS3FromEnv constructs an S3-backed blob.Store from process environment.
// See the s3 infra package for the variable list.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return s3.OpenFromEnv(ctx)
}
