package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

const keyPrefix = "award:history:"

// Redis keeps points in one sorted set per program, scored by capture
// time in unix seconds.
type Redis struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

// NewRedis connects to url and verifies the connection.
func NewRedis(url string, window time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "connecting to redis", err)
	}

	return &Redis{client: client, window: window, now: time.Now}, nil
}

// Record adds p and drops points that fell out of the window.
func (r *Redis) Record(ctx context.Context, p Point) error {
	member, err := json.Marshal(p)
	if err != nil {
		return errors.InternalError("encoding history point", err)
	}

	key := keyPrefix + p.Program
	minScore := r.now().Add(-r.window).Unix()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(p.CapturedAt.Unix()),
		Member: string(member),
	})
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", minScore))
	pipe.Expire(ctx, key, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "saving history point", err)
	}
	return nil
}

// Load returns points for program since the given time.
func (r *Redis) Load(ctx context.Context, program string, since time.Time) ([]Point, error) {
	members, err := r.client.ZRangeByScore(ctx, keyPrefix+program, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.Unix()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "loading history", err)
	}

	points := make([]Point, 0, len(members))
	for _, m := range members {
		var p Point
		if err := json.Unmarshal([]byte(m), &p); err != nil {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
