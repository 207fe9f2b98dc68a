package cmd

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"

	"vidcompress/config"
	"vidcompress/queue"
)

func ConsumeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Drain queued envelopes into the metadata logger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			from, _ := cmd.Flags().GetString("from")

			var source queue.Source
			switch from {
			case config.TransportSQS:
				if a.cfg.LoggerQueueURL == "" {
					return fmt.Errorf("LOGGER_QUEUE_URL is required to consume from sqs")
				}
				awsCfg, err := a.AWSConfig(ctx)
				if err != nil {
					return err
				}
				source = queue.NewSQSSource(sqs.NewFromConfig(awsCfg), a.cfg.LoggerQueueURL)
			case config.TransportRedis:
				source = queue.NewRedisSource(a.Redis(), a.cfg.RedisQueue)
			default:
				return fmt.Errorf("--from must be %q or %q", config.TransportSQS, config.TransportRedis)
			}

			return queue.NewConsumer(source, a.Metadata(), a.Journal()).Run(ctx)
		},
	}

	from := a.cfg.LoggerTransport
	if from != config.TransportRedis {
		from = config.TransportSQS
	}
	cmd.Flags().String("from", from, "Queue to consume: sqs or redis")
	return cmd
}
