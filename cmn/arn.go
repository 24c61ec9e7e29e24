package cmn

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/arn"
)

// BuildARN synthesizes `arn:aws:<svc>:<region>:<account>:<type>/<id>` using
// the real `arn.ARN` type from aws-sdk-go's arn package so the string form
// (`arn.String()`) matches what every AWS SDK's own arn.Parse would accept.
func BuildARN(svc, region, resourceType, id string) string {
	a := arn.ARN{
		Partition: DefaultPartition,
		Service:   svc,
		Region:    region,
		AccountID: DefaultAccountID,
		Resource:  fmt.Sprintf("%s/%s", resourceType, id),
	}
	return a.String()
}

// BuildARNResource synthesizes an ARN whose resource part has no "/",
// i.e. `arn:aws:<svc>:<region>:<account>:<resource>` (used by services like
// SNS/SQS/EventBridge buses where the name itself is the resource).
func BuildARNResource(svc, region, resource string) string {
	a := arn.ARN{
		Partition: DefaultPartition,
		Service:   svc,
		Region:    region,
		AccountID: DefaultAccountID,
		Resource:  resource,
	}
	return a.String()
}

// ParseARN parses a synthesized ARN back into its parts, surfacing
// cmn.ErrInvalidArgument on malformed input.
func ParseARN(s string) (arn.ARN, error) {
	a, err := arn.Parse(s)
	if err != nil {
		return arn.ARN{}, ErrInvalidArgument("invalid ARN: " + s)
	}
	return a, nil
}

// QueueURL synthesizes the SQS queue URL form spec.md §6 names:
// `http://localhost:4566/<account>/<name>`.
func QueueURL(endpoint, name string) string {
	return fmt.Sprintf("%s/%s/%s", endpoint, DefaultAccountID, name)
}
