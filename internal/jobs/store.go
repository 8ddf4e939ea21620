package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	eventListKey = "audit:events"
)

// Store は監査イベントを Redis のリストに新しい順で保存します。
// 保持件数は maxEvents 件までです。
type Store struct {
	rdb       *redis.Client
	maxEvents int64
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, maxEvents int) *Store {
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &Store{
		rdb:       rdb,
		maxEvents: int64(maxEvents),
	}
}

// Append はイベントを先頭に追加し、古いものを切り詰めます。
func (s *Store) Append(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, eventListKey, payload)
	pipe.LTrim(ctx, eventListKey, 0, s.maxEvents-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent は新しい順に最大 n 件のイベントを返します。
func (s *Store) Recent(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	values, err := s.rdb.LRange(ctx, eventListKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(values))
	for _, v := range values {
		var event Event
		if err := json.Unmarshal([]byte(v), &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
