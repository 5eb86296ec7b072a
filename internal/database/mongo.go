package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	ErrMongoNotReady = errors.New("mongo did not become ready")
	ErrRedisNotReady = errors.New("redis did not become ready")
)

const (
	connectAttempts = 3
	retryInterval   = 2 * time.Second
)

// ConnectMongo connects to url and pings it, retrying a few times so the
// processes can start alongside the database in docker compose.
func ConnectMongo(ctx context.Context, url string) (*mongo.Client, error) {
	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(url).
				SetConnectTimeout(10 * time.Second).
				SetMaxConnIdleTime(5 * time.Minute),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err
		if !sleep(ctx, retryInterval) {
			return nil, errors.Join(ErrMongoNotReady, ctx.Err())
		}
	}
	return nil, errors.Join(ErrMongoNotReady, lastErr)
}

// MongoHealthcheck returns a ping closure for the health endpoint.
func MongoHealthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
