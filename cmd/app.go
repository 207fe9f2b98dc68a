package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"vidcompress/airtable"
	"vidcompress/completion"
	"vidcompress/config"
	"vidcompress/invoke"
	"vidcompress/journal"
	"vidcompress/logger"
	"vidcompress/mediaconvert"
	"vidcompress/metalogger"
	"vidcompress/notify"
	"vidcompress/storage"
)

// app builds the process-wide clients from one Config. Every client is
// created at most once and shared by the handlers that need it.
type app struct {
	cfg config.Config

	awsCfg   *aws.Config
	router   *storage.Router
	gcs      *storage.GCSBackend
	redis    *redis.Client
	journal  *journal.Journal
	metadata *metalogger.Service
}

func newApp(cfg config.Config) *app {
	return &app{cfg: cfg}
}

func (a *app) Close() {
	if a.gcs != nil {
		a.gcs.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.journal != nil {
		a.journal.Close()
	}
}

func (a *app) AWSConfig(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(a.cfg.AWSRegion)}
	if a.cfg.AWSAccessKeyID != "" && a.cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.cfg.AWSAccessKeyID, a.cfg.AWSSecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	a.awsCfg = &cfg
	return cfg, nil
}

// Storage registers every backend the configuration allows.
func (a *app) Storage(ctx context.Context) (*storage.Router, error) {
	if a.router != nil {
		return a.router, nil
	}

	awsCfg, err := a.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	router := storage.NewRouter()
	router.Register(storage.SchemeS3, storage.NewS3Backend(storage.NewS3Client(awsCfg, a.cfg.S3Endpoint), a.cfg.AWSRegion, a.cfg.S3Endpoint))
	router.Register(storage.SchemeLocal, storage.NewLocalBackend(a.cfg.LocalStorageDir, a.cfg.LocalPublicURL))

	if a.cfg.SFTPUser != "" {
		router.Register(storage.SchemeSFTP, storage.NewSFTPBackend(a.cfg.SFTPUser, a.cfg.SFTPPassword, a.cfg.SFTPPrivateKey, a.cfg.SFTPPort))
	}

	if a.cfg.GCSCredentialsFile != "" {
		gcsBackend, err := storage.NewGCSBackend(ctx, a.cfg.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		a.gcs = gcsBackend
		router.Register(storage.SchemeGCS, gcsBackend)
	}

	a.router = router
	return router, nil
}

func (a *app) Redis() *redis.Client {
	if a.redis == nil {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
	}
	return a.redis
}

// Journal opens the local journal, or returns nil when it is disabled or cannot be opened.
func (a *app) Journal() *journal.Journal {
	if a.journal != nil {
		return a.journal
	}
	path := a.cfg.JournalPath()
	if path == "" {
		return nil
	}
	j, err := journal.Open(path)
	if err != nil {
		logger.Warnf("Journal disabled: %v", err)
		return nil
	}
	a.journal = j
	return j
}

func (a *app) Metadata() *metalogger.Service {
	if a.metadata == nil {
		if !a.cfg.AirtableEnabled() {
			logger.Warn("Airtable credentials are placeholders; record store calls will fail")
		}
		a.metadata = metalogger.NewService(airtable.NewClient(
			a.cfg.AirtableAPIURL, a.cfg.AirtableBaseID, a.cfg.AirtableTableName, a.cfg.AirtableAPIKey,
		))
	}
	return a.metadata
}

// MetadataLogger selects the transport named by LOGGER_TRANSPORT.
func (a *app) MetadataLogger(ctx context.Context) (invoke.MetadataLogger, error) {
	switch a.cfg.LoggerTransport {
	case config.TransportDirect, "":
		return invoke.Direct{Handler: a.Metadata()}, nil

	case config.TransportLambda:
		awsCfg, err := a.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return invoke.NewLambda(lambda.NewFromConfig(awsCfg), a.cfg.MetadataLoggerFunction), nil

	case config.TransportHTTP:
		if a.cfg.LoggerURL == "" {
			return nil, fmt.Errorf("LOGGER_URL is required for the http transport")
		}
		return invoke.NewHTTP(a.cfg.LoggerURL, []byte(a.cfg.InvokeTokenSecret), a.cfg.InvokeTokenIssuer), nil

	case config.TransportSQS:
		if a.cfg.LoggerQueueURL == "" {
			return nil, fmt.Errorf("LOGGER_QUEUE_URL is required for the sqs transport")
		}
		awsCfg, err := a.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return invoke.NewSQS(sqs.NewFromConfig(awsCfg), a.cfg.LoggerQueueURL), nil

	case config.TransportRedis:
		return invoke.NewRedis(a.Redis(), a.cfg.RedisQueue), nil

	default:
		return nil, fmt.Errorf("unknown logger transport %q", a.cfg.LoggerTransport)
	}
}

func (a *app) Notifier(ctx context.Context) (notify.Notifier, error) {
	var targets notify.Multi

	if a.cfg.SNSTopic != "" {
		awsCfg, err := a.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		targets = append(targets, notify.NewSNSPublisher(sns.NewFromConfig(awsCfg), a.cfg.SNSTopic))
	}
	if a.cfg.WebhookURL != "" {
		targets = append(targets, notify.NewWebhookPublisher(a.cfg.WebhookURL, a.cfg.WebhookHeaders))
	}

	if len(targets) == 0 {
		return notify.Nop{}, nil
	}
	return targets, nil
}

func (a *app) CompletionHandler(ctx context.Context) (*completion.Handler, error) {
	awsCfg, err := a.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	router, err := a.Storage(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := a.Notifier(ctx)
	if err != nil {
		return nil, err
	}
	metadataLogger, err := a.MetadataLogger(ctx)
	if err != nil {
		return nil, err
	}

	return &completion.Handler{
		Config:       a.cfg,
		MediaConvert: mediaconvert.NewAWSClient(awsCfg, a.cfg.MediaConvertEndpoint),
		Storage:      router,
		Notifier:     notifier,
		Logger:       metadataLogger,
		Journal:      a.Journal(),
	}, nil
}
