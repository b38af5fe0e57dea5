// Kbgateway is a multi-tenant HTTP gateway over a Bedrock knowledge
// base and its S3 document store.
//
// Every data route is tenant-scoped: requests carry an X-Tenant-ID
// header, documents live under per-tenant S3 prefixes, and retrieval
// queries are filtered to the calling tenant's documents.
//
// Configuration comes from an optional YAML file (--config) overridden
// by environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with environment configuration
//	STORAGE_BUCKET=my-docs BEDROCK_KNOWLEDGE_BASE_ID=KB123 kbgateway
//
//	# Start with a config file
//	kbgateway --config kbgateway.yaml
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/catalog"
	"github.com/fyrsmithlabs/kbgateway/internal/config"
	"github.com/fyrsmithlabs/kbgateway/internal/filter"
	httpapi "github.com/fyrsmithlabs/kbgateway/internal/http"
	"github.com/fyrsmithlabs/kbgateway/internal/ingest"
	"github.com/fyrsmithlabs/kbgateway/internal/logging"
	"github.com/fyrsmithlabs/kbgateway/internal/rag"
	"github.com/fyrsmithlabs/kbgateway/internal/retrieval"
	"github.com/fyrsmithlabs/kbgateway/internal/storage"
)

// Version information (set via ldflags during build)
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "kbgateway",
	Short:   "Multi-tenant gateway for a Bedrock knowledge base",
	Version: version,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "kbgateway: %v\n", err)
		os.Exit(1)
	}
}

// run wires all dependencies and blocks until the context is cancelled
// or the server fails.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required (STORAGE_BUCKET)")
	}
	if cfg.Bedrock.KnowledgeBaseID == "" {
		return fmt.Errorf("knowledge base ID is required (BEDROCK_KNOWLEDGE_BASE_ID)")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting kbgateway",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("region", cfg.AWS.Region),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("knowledge_base_id", cfg.Bedrock.KnowledgeBaseID),
	)

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received",
		zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildServer constructs the AWS clients, services, and HTTP server.
func buildServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*httpapi.Server, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	store, err := storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Storage.Bucket)
	if err != nil {
		return nil, err
	}

	backend, err := retrieval.NewBedrockBackend(
		bedrockagentruntime.NewFromConfig(awsCfg),
		bedrockagent.NewFromConfig(awsCfg),
		logger.Named("retrieval"),
	)
	if err != nil {
		return nil, err
	}

	builder, err := catalog.NewBuilder(store, logger.Named("catalog"))
	if err != nil {
		return nil, err
	}

	ingestSvc, err := ingest.NewService(store, backend, builder, ingest.Config{
		KnowledgeBaseID: cfg.Bedrock.KnowledgeBaseID,
		DataSourceID:    cfg.Bedrock.DataSourceID,
	}, logger.Named("ingest"))
	if err != nil {
		return nil, err
	}

	policy := filter.DropUnknown
	if cfg.Filters.StrictOperators {
		policy = filter.RejectUnknown
	}

	ragSvc, err := rag.NewService(backend, rag.Config{
		KnowledgeBaseID:  cfg.Bedrock.KnowledgeBaseID,
		Region:           cfg.AWS.Region,
		DefaultModelID:   cfg.Bedrock.ModelID,
		UnknownOperators: policy,
	}, logger.Named("rag"))
	if err != nil {
		return nil, err
	}

	return httpapi.NewServer(ingestSvc, ragSvc, logger.Named("http"), &httpapi.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		Version:           version,
		TenantHeader:      cfg.Tenant.HeaderName,
		ExemptPaths:       cfg.Tenant.ExemptPaths,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	})
}
