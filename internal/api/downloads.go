package api

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/juanifmera/progresion/internal/model"
)

type exportDownload struct {
	artifact  *model.Artifact
	runID     string
	expiresAt time.Time
}

// downloadStore 导出产物的一次性下载令牌（内存，带 TTL）
type downloadStore struct {
	mu    sync.Mutex
	items map[string]exportDownload
	now   func() time.Time
}

func newDownloadStore() *downloadStore {
	return &downloadStore{
		items: make(map[string]exportDownload),
		now:   time.Now,
	}
}

func (s *downloadStore) put(artifact *model.Artifact, runID string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	token = newRandomToken(24)
	s.items[token] = exportDownload{
		artifact:  artifact,
		runID:     runID,
		expiresAt: now.Add(ttl),
	}
	return token
}

// take 取出并删除；过期或不存在时返回 false
func (s *downloadStore) take(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	v, ok := s.items[token]
	if !ok {
		return exportDownload{}, false
	}
	delete(s.items, token)
	return v, true
}

func (s *downloadStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *downloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
