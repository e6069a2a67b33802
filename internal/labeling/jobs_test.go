package labeling

import (
	"errors"
	"fmt"
	"testing"

	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/smithy-go"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&smtypes.ResourceNotFound{}) {
		t.Error("expected ResourceNotFound to be treated as not found")
	}
	if !isNotFound(&smithy.GenericAPIError{Code: "ValidationException", Message: "no such job"}) {
		t.Error("expected ValidationException to be treated as not found")
	}
	if !isNotFound(fmt.Errorf("wrapped: %w", &smtypes.ResourceNotFound{})) {
		t.Error("expected wrapped ResourceNotFound to be treated as not found")
	}
	if isNotFound(&smithy.GenericAPIError{Code: "ThrottlingException"}) {
		t.Error("throttling is not a not-found condition")
	}
	if isNotFound(errors.New("plain")) {
		t.Error("plain errors are not a not-found condition")
	}
}
