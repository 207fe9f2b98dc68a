package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Logger transports understood by LOGGER_TRANSPORT.
const (
	TransportDirect = "direct"
	TransportLambda = "lambda"
	TransportHTTP   = "http"
	TransportSQS    = "sqs"
	TransportRedis  = "redis"
)

// Config is built once per process and handed to every component that needs it.
// Defaults are placeholders and must be overridden in a real deployment.
type Config struct {
	TempBucket             string
	CompressedBucket       string
	SNSTopic               string
	MetadataLoggerFunction string
	MediaConvertEndpoint   string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Endpoint         string

	AirtableAPIURL    string
	AirtableBaseID    string
	AirtableTableName string
	AirtableAPIKey    string

	LoggerTransport string
	LoggerURL       string
	LoggerQueueURL  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisQueue    string

	InvokeTokenSecret string
	InvokeTokenIssuer string

	WebhookURL     string
	WebhookHeaders map[string]string

	GCSCredentialsFile string
	SFTPUser           string
	SFTPPassword       string
	SFTPPrivateKey     string
	SFTPPort           string
	LocalStorageDir    string
	LocalPublicURL     string

	DataDir  string
	HTTPAddr string
	LogLevel string
	LogFile  string
}

// Load reads a .env file when present and then the process environment.
func Load() Config {
	// A missing .env is the normal case in Lambda.
	_ = godotenv.Load()

	return Config{
		TempBucket:             getEnv("TEMP_BUCKET", "vidcompress-temp-processing"),
		CompressedBucket:       getEnv("COMPRESSED_BUCKET", "vidcompress-compressed-videos"),
		SNSTopic:               getEnv("SNS_TOPIC", "arn:aws:sns:us-east-1:YOUR-ACCOUNT-ID:video-compression-notifications"),
		MetadataLoggerFunction: getEnv("METADATA_LOGGER_FUNCTION", "MetaDataLogger"),
		MediaConvertEndpoint:   getEnv("MEDIACONVERT_ENDPOINT", "https://YOUR-ENDPOINT.mediaconvert.us-east-1.amazonaws.com"),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),

		AirtableAPIURL:    getEnv("AIRTABLE_API_URL", "https://api.airtable.com"),
		AirtableBaseID:    getEnv("AIRTABLE_BASE_ID", "your-base-id"),
		AirtableTableName: getEnv("AIRTABLE_TABLE_NAME", "Processed Videos"),
		AirtableAPIKey:    getEnv("AIRTABLE_API_KEY", "your-api-key"),

		LoggerTransport: strings.ToLower(getEnv("LOGGER_TRANSPORT", TransportDirect)),
		LoggerURL:       os.Getenv("LOGGER_URL"),
		LoggerQueueURL:  os.Getenv("LOGGER_QUEUE_URL"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       parseInt(os.Getenv("REDIS_DB"), 0),
		RedisQueue:    getEnv("REDIS_QUEUE", "vidcompress:metadata"),

		InvokeTokenSecret: os.Getenv("INVOKE_TOKEN_SECRET"),
		InvokeTokenIssuer: getEnv("INVOKE_TOKEN_ISSUER", "vidcompress"),

		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		WebhookHeaders: parseHeaders(os.Getenv("WEBHOOK_HEADERS")),

		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		SFTPUser:           os.Getenv("SFTP_USER"),
		SFTPPassword:       os.Getenv("SFTP_PASSWORD"),
		SFTPPrivateKey:     os.Getenv("SFTP_PRIVATE_KEY"),
		SFTPPort:           getEnv("SFTP_PORT", "22"),
		LocalStorageDir:    getEnv("LOCAL_STORAGE_DIR", "./storage"),
		LocalPublicURL:     os.Getenv("LOCAL_PUBLIC_URL"),

		DataDir:  getEnv("VIDCOMPRESS_DATA_DIR", "./data"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

// JournalPath returns the pebble directory holding the invocation journal.
// An empty DataDir disables the journal.
func (c Config) JournalPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "journal.db")
}

// AirtableEnabled reports whether real Airtable credentials were supplied.
func (c Config) AirtableEnabled() bool {
	return c.AirtableAPIKey != "" && c.AirtableAPIKey != "your-api-key" &&
		c.AirtableBaseID != "" && c.AirtableBaseID != "your-base-id"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// parseHeaders reads "Key: value; Other: value" pairs.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers
}
