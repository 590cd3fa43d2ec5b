package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/audiotesttools/att/pkg/cli"
	"github.com/audiotesttools/att/pkg/debugfile"
	"github.com/audiotesttools/att/pkg/storage"
	"github.com/audiotesttools/att/pkg/tracedb"
)

const defaultS3Region = "us-east-1"

// Test hooks. When set, s3:// arguments resolve against testStore and the
// trace database commands use testDB.
var (
	testStore storage.FileStore
	testDB    *tracedb.DB
)

// openDebugFile opens a local path or an s3://bucket/key URI.
func openDebugFile(ctx context.Context, name string) (*debugfile.File, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	u, ok, err := storage.ParseS3URI(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return debugfile.Open(name, opts)
	}
	store, err := s3Store(u.Bucket)
	if err != nil {
		return nil, err
	}
	logger.Debug("opening remote debug file", "uri", u.String(), "lazy", opts.LazyLoad)
	return debugfile.OpenStore(ctx, store, u.Key, opts)
}

// createDebugFile creates a writer for a local path or an s3:// URI.
func createDebugFile(ctx context.Context, name string) (*debugfile.Writer, error) {
	u, ok, err := storage.ParseS3URI(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return debugfile.Create(name)
	}
	store, err := s3Store(u.Bucket)
	if err != nil {
		return nil, err
	}
	return debugfile.CreateIn(ctx, store, u.Key)
}

func s3Store(bucket string) (storage.FileStore, error) {
	if testStore != nil {
		return testStore, nil
	}
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return storage.NewS3(newS3Client(cfg.S3), bucket, ""), nil
}

// newS3Client builds a client from the config, falling back to the
// standard AWS environment variables for region and credentials.
func newS3Client(c cli.S3Config) *s3.Client {
	region := c.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = defaultS3Region
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: c.PathStyle,
		Credentials:  s3Credentials(c),
	}
	if c.Endpoint != "" {
		opts.BaseEndpoint = aws.String(c.Endpoint)
	}
	return s3.New(opts)
}

func s3Credentials(c cli.S3Config) aws.CredentialsProvider {
	creds := aws.Credentials{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Source:          "att config",
	}
	if creds.AccessKeyID == "" {
		creds = aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}
	}
	if creds.AccessKeyID == "" {
		return aws.AnonymousCredentials{}
	}
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	})
}

// openTraceDB opens the configured trace database. The returned function
// closes it.
func openTraceDB() (*tracedb.DB, func(), error) {
	if testDB != nil {
		return testDB, func() {}, nil
	}
	cfg, err := getConfig()
	if err != nil {
		return nil, nil, err
	}
	dir := cfg.TraceDBDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create trace database directory: %w", err)
	}
	db, err := tracedb.Open(tracedb.Options{Dir: dir, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("open trace database %s: %w", dir, err)
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("close trace database", "error", err)
		}
	}, nil
}
