package store

import (
	"context"
	"fmt"
	"log"

	"todaytasks/api/internal/config"
)

// OpenBackend builds the document backend selected by cfg.Store. The returned
// close function releases connections and is never nil.
func OpenBackend(ctx context.Context, cfg config.Config) (Documents, func(), error) {
	noop := func() {}
	switch cfg.Store {
	case config.StoreFile, "":
		files, err := NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Using file documents in %s", cfg.DataDir)
		return files, noop, nil
	case config.StorePostgres:
		db, err := Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := ApplyMigrations(ctx, db, Migrations(cfg.MigrationsDir)); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("migrations: %w", err)
		}
		log.Printf("Using PostgreSQL documents")
		pg := NewPostgresStore(db)
		return pg, func() { _ = pg.Close() }, nil
	case config.StoreRedis:
		rs, err := NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Using Redis documents")
		return rs, func() { _ = rs.Close() }, nil
	case config.StoreS3:
		objects, err := NewObjectStore(ctx, ObjectStoreOptions{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Using S3 documents in bucket %s", cfg.S3Bucket)
		return objects, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
