package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"vidcompress/models"
)

// LambdaAPI is the part of the Lambda client used for invocation.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Lambda invokes the metadata logger function synchronously.
type Lambda struct {
	Client       LambdaAPI
	FunctionName string
}

func NewLambda(client LambdaAPI, functionName string) *Lambda {
	return &Lambda{Client: client, FunctionName: functionName}
}

func (l *Lambda) LogEvent(ctx context.Context, env models.Envelope) (models.Response, error) {
	payload, err := marshalEnvelope(env)
	if err != nil {
		return models.Response{}, err
	}

	out, err := l.Client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.FunctionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return models.Response{}, fmt.Errorf("lambda invoke %s: %w", l.FunctionName, err)
	}
	if out.FunctionError != nil {
		return models.Response{}, fmt.Errorf("lambda %s raised %s: %s", l.FunctionName, aws.ToString(out.FunctionError), string(out.Payload))
	}

	var resp models.Response
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return models.Response{}, fmt.Errorf("failed to decode lambda %s response: %w", l.FunctionName, err)
	}
	return resp, nil
}
