// Package app assembles the backends selected by configuration. Both the API
// and the worker binaries open their dependencies through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/FileVault/internal/auth"
	"github.com/dharsanguruparan/FileVault/internal/blob"
	"github.com/dharsanguruparan/FileVault/internal/config"
	"github.com/dharsanguruparan/FileVault/internal/database"
	"github.com/dharsanguruparan/FileVault/internal/files"
	"github.com/dharsanguruparan/FileVault/internal/processing"
	"github.com/dharsanguruparan/FileVault/internal/queue"
	"github.com/dharsanguruparan/FileVault/internal/repository"
	"github.com/dharsanguruparan/FileVault/internal/worker"
)

// ErrUnknownBackend is returned for a backend name config does not define.
var ErrUnknownBackend = errors.New("unknown backend")

// Deps holds the opened backends. Close releases them in reverse order.
type Deps struct {
	Files     repository.Files
	Blobs     blob.Store
	Redis     *redis.Client
	DBCheck   func(context.Context) error
	BlobCheck func(context.Context) error // nil for the local store

	cfg     *config.Config
	log     *slog.Logger
	closers []func()
}

// Open connects the metadata store and blob store. Redis is opened only when
// withRedis is set; the worker under the memory queue never needs it.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger, withRedis bool) (*Deps, error) {
	d := &Deps{cfg: cfg, log: log}
	if err := d.openMetadata(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.openBlobs(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if withRedis {
		client, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = client
		d.closers = append(d.closers, func() { _ = client.Close() })
	}
	return d, nil
}

// Close releases every backend opened so far.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

func (d *Deps) openMetadata(ctx context.Context) error {
	switch d.cfg.MetadataBackend {
	case config.MetadataMongo:
		client, err := database.ConnectMongo(ctx, d.cfg.MongoURL)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() { _ = client.Disconnect(context.Background()) })
		repo := repository.NewMongoFiles(client.Database(d.cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		d.Files = repo
		d.DBCheck = database.MongoHealthcheck(client)
	case config.MetadataPostgres:
		pool, err := database.ConnectPostgres(ctx, d.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, pool.Close)
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		d.Files = repository.NewPostgresFiles(pool)
		d.DBCheck = database.PostgresHealthcheck(pool)
	case config.MetadataMemory:
		d.Files = repository.NewMemoryFiles()
	default:
		return fmt.Errorf("%w: metadata %q", ErrUnknownBackend, d.cfg.MetadataBackend)
	}
	d.log.Info("metadata store ready", "backend", d.cfg.MetadataBackend)
	return nil
}

func (d *Deps) openBlobs(ctx context.Context) error {
	switch d.cfg.StorageBackend {
	case config.StorageLocal:
		store, err := blob.NewLocalStore(d.cfg.FolderPath)
		if err != nil {
			return err
		}
		d.Blobs = store
	case config.StorageMinio:
		store, err := blob.NewMinioStore(blob.MinioOptions{
			Endpoint:  d.cfg.S3Endpoint,
			AccessKey: d.cfg.S3AccessKey,
			SecretKey: d.cfg.S3SecretKey,
			Region:    d.cfg.S3Region,
			Bucket:    d.cfg.S3Bucket,
			UseSSL:    d.cfg.S3UseSSL,
		})
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		d.Blobs = store
		d.BlobCheck = store.Healthcheck
	default:
		return fmt.Errorf("%w: storage %q", ErrUnknownBackend, d.cfg.StorageBackend)
	}
	d.log.Info("blob store ready", "backend", d.cfg.StorageBackend)
	return nil
}

// Processor builds the thumbnail job handler over the opened stores.
func (d *Deps) Processor() *worker.Processor {
	return worker.NewProcessor(d.Files, d.Blobs, d.log.With("component", "worker"))
}

// Enqueuer returns where the API publishes thumbnail jobs. With the memory
// queue it starts an in-process pool that lives until Close.
func (d *Deps) Enqueuer(ctx context.Context) (queue.Enqueuer, error) {
	switch d.cfg.QueueBackend {
	case config.QueueAsynq:
		opt, err := asynq.ParseRedisURI(d.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis uri: %w", err)
		}
		client := asynq.NewClient(opt)
		d.closers = append(d.closers, func() { _ = client.Close() })
		return queue.NewAsynqEnqueuer(client, d.cfg.ThumbnailMaxRetry), nil
	case config.QueueMemory:
		pool := processing.New(d.Processor().Process, d.cfg.Workers, d.cfg.ThumbnailMaxRetry, d.log.With("component", "processing"))
		pool.Start(ctx)
		d.closers = append(d.closers, pool.Stop)
		return pool, nil
	default:
		return nil, fmt.Errorf("%w: queue %q", ErrUnknownBackend, d.cfg.QueueBackend)
	}
}

// Service builds the file service. It requires Redis for session tokens.
func (d *Deps) Service(jobs queue.Enqueuer) (*files.Service, error) {
	if d.Redis == nil {
		return nil, errors.New("file service needs redis for session tokens")
	}
	return d.ServiceWithTokens(auth.NewRedisStore(d.Redis), jobs), nil
}

// ServiceWithTokens builds the file service over an explicit token store.
func (d *Deps) ServiceWithTokens(tokens auth.Store, jobs queue.Enqueuer) *files.Service {
	return files.NewService(d.Files, d.Blobs, auth.NewAuthority(tokens), jobs, d.log.With("component", "files"))
}

// RedisCheck pings the token store, or reports an error when none is open.
func (d *Deps) RedisCheck() func(context.Context) error {
	if d.Redis == nil {
		return func(context.Context) error { return errors.New("redis not configured") }
	}
	return database.RedisHealthcheck(d.Redis)
}
