package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryBucket is an in-process BucketService for local runs without GCS.
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryBucket(baseURL string) *MemoryBucket {
	if baseURL == "" {
		baseURL = "memory://documents"
	}
	return &MemoryBucket{objects: map[string][]byte{}, baseURL: baseURL}
}

func (m *MemoryBucket) UploadFile(_ context.Context, key string, file io.Reader) error {
	b, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryBucket) DeleteFile(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("object %q not found", key)
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryBucket) DownloadFile(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *MemoryBucket) GetPublicURL(key string) string {
	return m.baseURL + "/" + key
}

// Has reports whether key is stored.
func (m *MemoryBucket) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}
