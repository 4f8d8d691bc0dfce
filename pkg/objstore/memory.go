package objstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

// MemoryURLPrefix prefixes the pseudo-URLs returned by Memory.SignedURL.
const MemoryURLPrefix = "memory://"

type memoryObject struct {
	data        []byte
	contentType string
	created     time.Time
}

// Memory is an in-process ObjectStore with the same surface as GCS. Used in
// tests and for local runs without cloud credentials.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

var _ contractx.ObjectStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		created:     m.now().UTC(),
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrObjectNotFound, key)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]contractx.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var infos []contractx.ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, contractx.ObjectInfo{
			Key:     key,
			Size:    int64(len(obj.data)),
			Created: obj.created,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (m *Memory) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("%w: %s", contractx.ErrObjectNotFound, key)
	}
	return MemoryURLPrefix + key, nil
}

// Open resolves a pseudo-URL produced by SignedURL back to the object bytes.
func (m *Memory) Open(url string) ([]byte, error) {
	return m.Get(context.Background(), strings.TrimPrefix(url, MemoryURLPrefix))
}
