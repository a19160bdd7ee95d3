package database

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ObjectStore stores attachment blobs keyed by path
type ObjectStore interface {
	Upload(path, contentType string, data []byte) error
	Download(path string) ([]byte, string, error)
	Remove(path string) error
}

// SupabaseStorage stores blobs in a Supabase Storage bucket
type SupabaseStorage struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
}

// NewSupabaseStorage creates a storage client for a bucket
func NewSupabaseStorage(apiURL, key, bucket string) *SupabaseStorage {
	if !strings.HasPrefix(apiURL, "http") {
		apiURL = "https://" + apiURL
	}

	return &SupabaseStorage{
		baseURL: apiURL,
		apiKey:  key,
		bucket:  bucket,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// objectURL builds the storage endpoint for a path
func (s *SupabaseStorage) objectURL(path string) string {
	return s.baseURL + "/storage/v1/object/" + s.bucket + "/" + path
}

// Upload writes a blob to the bucket
func (s *SupabaseStorage) Upload(path, contentType string, data []byte) error {
	req, err := http.NewRequest("POST", s.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Download reads a blob and its content type from the bucket
func (s *SupabaseStorage) Download(path string) ([]byte, string, error) {
	req, err := http.NewRequest("GET", s.objectURL(path), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("object not found")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("storage download failed with status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Remove deletes a blob from the bucket
func (s *SupabaseStorage) Remove(path string) error {
	req, err := http.NewRequest("DELETE", s.objectURL(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage delete failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// MemoryStorage keeps blobs in memory, for development and tests
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStorage creates an empty in-memory blob store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
	}
}

// Upload stores a blob copy under the path
func (s *MemoryStorage) Upload(path, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[path] = memoryObject{data: buf, contentType: contentType}
	return nil
}

// Download returns the blob stored under the path
func (s *MemoryStorage) Download(path string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[path]
	if !ok {
		return nil, "", fmt.Errorf("object not found")
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, obj.contentType, nil
}

// Remove deletes the blob stored under the path
func (s *MemoryStorage) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, path)
	return nil
}
