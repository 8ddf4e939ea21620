package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内のマップでセッションを保持します。
// 再起動するとすべてのセッションは失われます。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Put はレコードを保存します。
func (s *MemoryStore) Put(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TokenHash] = rec
	return nil
}

// Get はレコードを返します。期限切れのものは存在しない扱いです。
func (s *MemoryStore) Get(ctx context.Context, tokenHash string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[tokenHash]
	s.mu.RUnlock()

	if !ok || rec.Expired(s.now()) {
		return nil, nil
	}
	return &rec, nil
}

// Delete はレコードを削除します。
func (s *MemoryStore) Delete(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, tokenHash)
	return nil
}

// Len は保持しているレコード数を返します（期限切れを含む）。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Sweep は期限切れのレコードを削除し、削除した件数を返します。
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for hash, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, hash)
			removed++
		}
	}
	return removed
}

// Run は ctx が終了するまで interval ごとに Sweep を実行します。
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
