package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Per-attempt timeouts, independent of the caller's context deadline.
	uploadTimeout   = 120 * time.Second
	downloadTimeout = 60 * time.Second

	maxRetries     = 4
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// Storage is a Supabase Storage client for episode artifacts.
type Storage struct {
	url        string
	serviceKey string
	Bucket     string
	client     *http.Client
}

func New(url, serviceKey, bucket string) *Storage {
	return &Storage{
		url:        strings.TrimRight(url, "/"),
		serviceKey: serviceKey,
		Bucket:     bucket,
		client: &http.Client{
			Timeout: uploadTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// BucketName returns the bucket every object is written to.
func (s *Storage) BucketName() string {
	return s.Bucket
}

func (s *Storage) objectURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, s.Bucket, objectPath)
}

// statusError is a non-2xx reply from Supabase.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// withRetry runs attempt up to maxRetries+1 times with exponential backoff,
// retrying only network errors and retryable statuses.
func (s *Storage) withRetry(ctx context.Context, op, objectPath string, timeout time.Duration, attempt func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			delay := retryDelay(i)
			log.Printf("[Storage] %s retry %d/%d for %s (waiting %v)...", op, i, maxRetries, objectPath, delay)

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", op, ctx.Err())
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := attempt(attemptCtx)
		cancel()
		if err == nil {
			if i > 0 {
				log.Printf("[Storage] %s succeeded on attempt %d for %s", op, i+1, objectPath)
			}
			return nil
		}
		lastErr = err

		if se, ok := err.(*statusError); ok {
			if !isRetryableStatus(se.status) {
				return fmt.Errorf("%s failed: %w", op, err)
			}
			log.Printf("[Storage] %s attempt %d returned status %d (retryable): %s", op, i+1, se.status, truncate(se.body, 200))
			continue
		}
		if !isRetryableError(err) {
			return fmt.Errorf("%s failed: %w", op, err)
		}
		log.Printf("[Storage] %s attempt %d failed (retryable): %v", op, i+1, err)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, maxRetries+1, lastErr)
}

// Upload writes an object with upsert semantics.
func (s *Storage) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	return s.withRetry(ctx, "upload", objectPath, uploadTimeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "PUT", s.objectURL(objectPath), bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-upsert", "true")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			return &statusError{status: resp.StatusCode, body: string(body)}
		}
		return nil
	})
}

// Download reads an object's bytes.
func (s *Storage) Download(ctx context.Context, objectPath string) ([]byte, error) {
	var data []byte
	err := s.withRetry(ctx, "download", objectPath, downloadTimeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "GET", s.objectURL(objectPath), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return &statusError{status: resp.StatusCode, body: string(body)}
		}

		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GetPublicURL returns the public URL for an object.
func (s *Storage) GetPublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.Bucket, objectPath)
}

// GetSignedURL creates a signed URL for temporary access.
func (s *Storage) GetSignedURL(ctx context.Context, objectPath string, expiresIn int) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.url, s.Bucket, objectPath)

	body := fmt.Sprintf(`{"expiresIn": %d}`, expiresIn)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBufferString(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get signed URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse signed URL response: %w", err)
	}

	return s.url + "/storage/v1" + result.SignedURL, nil
}

// EpisodePath is the object path of one artifact of an episode.
func EpisodePath(episodeID uuid.UUID, filename string) string {
	return path.Join(episodeID.String(), filename)
}

// retryDelay is exponential backoff with 0-25% jitter.
func retryDelay(attempt int) time.Duration {
	delay := float64(baseRetryDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxRetryDelay) {
		delay = float64(maxRetryDelay)
	}
	jitter := delay * 0.25 * rand.Float64()
	return time.Duration(delay + jitter)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "broken pipe")
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
}

// truncate limits a string to maxLen bytes for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
