package cmd

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"vidcompress/invoke"
	"vidcompress/logger"
	"vidcompress/models"
)

// eventHandler is satisfied by *completion.Handler.
type eventHandler interface {
	Handle(ctx context.Context, raw json.RawMessage) models.Response
}

// completionLambdaHandler wraps the completion handler for lambda.Start. Failures
// are carried in the Response, never as an invocation error.
func completionLambdaHandler(h eventHandler) func(context.Context, json.RawMessage) (models.Response, error) {
	return func(ctx context.Context, event json.RawMessage) (models.Response, error) {
		return h.Handle(ctx, event), nil
	}
}

func metadataLambdaHandler(h invoke.EnvelopeHandler) func(context.Context, models.Envelope) (models.Response, error) {
	return func(ctx context.Context, env models.Envelope) (models.Response, error) {
		return h.Handle(ctx, env), nil
	}
}

func LambdaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Run a handler under the AWS Lambda Go runtime",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "completion",
		Short: "Handle MediaConvert job state change events",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := a.CompletionHandler(context.Background())
			if err != nil {
				return err
			}
			logger.Info("Starting completion handler Lambda")
			lambda.Start(completionLambdaHandler(handler))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "metadata",
		Short: "Log completion and failure envelopes to Airtable",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("Starting metadata logger Lambda")
			lambda.Start(metadataLambdaHandler(a.Metadata()))
			return nil
		},
	})

	return cmd
}
