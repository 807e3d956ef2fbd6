package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/user/stay-harvester/internal/entity"
)

const runHistoryKey = "harvester:runs"

// RunHistoryImpl keeps run summaries in a capped Redis list, newest at the head.
type RunHistoryImpl struct {
	client *redis.Client
	size   int64
}

// NewRunHistory creates a new instance of RunHistoryImpl holding at most size runs.
func NewRunHistory(client *redis.Client, size int) *RunHistoryImpl {
	return &RunHistoryImpl{client: client, size: int64(size)}
}

// Push adds a summary to the left side of the list and trims the tail.
func (r *RunHistoryImpl) Push(ctx context.Context, summary *entity.RunSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, runHistoryKey, b)
		if r.size > 0 {
			pipe.LTrim(ctx, runHistoryKey, 0, r.size-1)
		}
		return nil
	})
	return err
}

// Recent returns up to limit summaries, newest first.
func (r *RunHistoryImpl) Recent(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := r.client.LRange(ctx, runHistoryKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.RunSummary, 0, len(raw))
	for _, item := range raw {
		var s entity.RunSummary
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, nil
}
