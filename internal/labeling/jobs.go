// Package labeling provides the job-metadata collaborator: resolving a
// labeling job identifier to its output storage location.
package labeling

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/smithy-go"

	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/pkg/types"
)

// JobInfo describes one labeling job's output location.
type JobInfo struct {
	JobID  string
	Output types.S3URI
}

// JobMetadata abstracts the job-metadata collaborator. Implementations
// include SageMaker and an in-memory fake for testing.
type JobMetadata interface {
	// DescribeJob resolves a job identifier to its output location.
	// Fails with a FETCH:JOB_NOT_FOUND error if the job does not exist
	// and FETCH:NO_OUTPUT_PATH if it has no output configured.
	DescribeJob(ctx context.Context, jobID string) (JobInfo, error)
}

// SageMakerJobMetadata implements JobMetadata against the SageMaker
// DescribeLabelingJob API.
type SageMakerJobMetadata struct {
	client *sagemaker.Client
}

// NewSageMakerJobMetadata creates a SageMaker-backed job metadata client.
func NewSageMakerJobMetadata(ctx context.Context, region string) (*SageMakerJobMetadata, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SageMakerJobMetadata{client: sagemaker.NewFromConfig(awsCfg)}, nil
}

// NewSageMakerJobMetadataWithClient creates a job metadata client with a
// pre-configured SageMaker client.
func NewSageMakerJobMetadataWithClient(client *sagemaker.Client) *SageMakerJobMetadata {
	return &SageMakerJobMetadata{client: client}
}

// DescribeJob resolves a labeling job name to its S3 output location.
func (m *SageMakerJobMetadata) DescribeJob(ctx context.Context, jobID string) (JobInfo, error) {
	out, err := m.client.DescribeLabelingJob(ctx, &sagemaker.DescribeLabelingJobInput{
		LabelingJobName: aws.String(jobID),
	})
	if err != nil {
		if isNotFound(err) {
			return JobInfo{}, errors.NewFetchError(errors.CodeJobNotFound,
				fmt.Sprintf("labeling job %q does not exist", jobID), err)
		}
		return JobInfo{}, fmt.Errorf("describe labeling job %q: %w", jobID, err)
	}

	if out.OutputConfig == nil || aws.ToString(out.OutputConfig.S3OutputPath) == "" {
		return JobInfo{}, errors.NewFetchError(errors.CodeNoOutputPath,
			fmt.Sprintf("labeling job %q has no output path configured", jobID), nil)
	}

	uri, err := types.ParseS3URI(aws.ToString(out.OutputConfig.S3OutputPath))
	if err != nil {
		return JobInfo{}, errors.NewFetchError(errors.CodeNoOutputPath,
			fmt.Sprintf("labeling job %q output path is not an s3 URI", jobID), err)
	}

	return JobInfo{JobID: jobID, Output: uri}, nil
}

// isNotFound reports whether the SageMaker error means the job does not
// exist. DescribeLabelingJob surfaces this as either a ResourceNotFound
// modeled error or a ValidationException naming the missing job.
func isNotFound(err error) bool {
	var rnf *smtypes.ResourceNotFound
	if stderrors.As(err, &rnf) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "ResourceNotFound" || code == "ValidationException"
	}
	return false
}
