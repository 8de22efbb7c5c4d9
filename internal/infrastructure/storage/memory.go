package storage

import (
	"context"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryPhotoStore keeps photos in process memory. Used for local
// development and tests.
type MemoryPhotoStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryPhotoStore() *MemoryPhotoStore {
	return &MemoryPhotoStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryPhotoStore) Upload(_ context.Context, country, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[BucketName("mem", country)+"/"+key] = memoryObject{data: buf, contentType: contentType}
	return nil
}

func (s *MemoryPhotoStore) Download(_ context.Context, country, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[BucketName("mem", country)+"/"+key]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return obj.data, obj.contentType, nil
}

func (s *MemoryPhotoStore) Ping(context.Context) error { return nil }

// Len returns the number of stored objects
func (s *MemoryPhotoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
