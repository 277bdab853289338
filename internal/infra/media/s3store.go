// Package media mirrors item hero images to S3-compatible object storage,
// generalizing the teacher's fetch-and-extract content enrichment into a
// fetch-and-store pipeline with the same SSRF guards and circuit breaker
// idiom.
package media

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"kynewsroom/internal/config"
	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/infra/fetcher"
	"kynewsroom/internal/observability/metrics"
	"kynewsroom/internal/repository"
	"kynewsroom/internal/resilience/circuitbreaker"
	"kynewsroom/internal/resilience/retry"
)

const (
	downloadTimeout = 12 * time.Second
	mirrorTimeout   = downloadTimeout + 5*time.Second
	maxImageBytes   = 10 << 20 // 10 MiB
	cacheControl    = "public, max-age=31536000, immutable"
)

// Store implements ingest.MediaMirror against an S3-compatible bucket.
type Store struct {
	client         *s3.Client
	httpClient     *http.Client
	bucket         string
	publicURLBase  string
	media          repository.ItemMediaRepository
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewStore builds a Store from the application's media-store configuration.
// Endpoint is set only for S3-compatible providers that aren't AWS itself
// (e.g. a MinIO or R2 endpoint), in which case path-style addressing is
// required.
func NewStore(ctx context.Context, cfg config.MediaStoreConfig, mediaRepo repository.ItemMediaRepository) (*Store, error) {
	optFns := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client: client,
		httpClient: &http.Client{
			Timeout:   downloadTimeout,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}},
		},
		bucket:         cfg.Bucket,
		publicURLBase:  cfg.PublicURLBase,
		media:          mediaRepo,
		circuitBreaker: circuitbreaker.New(circuitbreaker.MediaMirrorConfig()),
	}, nil
}

// MirrorAsync implements ingest.MediaMirror. It runs on its own goroutine
// with a context detached from the caller's, since a slow or dead image
// host must never hold up ingestion; failures are logged here and nowhere
// else.
func (s *Store) MirrorAsync(itemID, imageURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := s.mirror(ctx, itemID, imageURL); err != nil {
			slog.Warn("media mirror failed",
				slog.String("item_id", itemID),
				slog.String("url", imageURL),
				slog.Any("error", err))
		}
	}()
}

func (s *Store) mirror(ctx context.Context, itemID, imageURL string) error {
	start := time.Now()

	existing, err := s.media.Get(ctx, itemID)
	if err != nil {
		return fmt.Errorf("check existing mirror: %w", err)
	}
	if existing != nil && existing.SourceURL == imageURL {
		metrics.RecordMediaMirror("skipped", 0)
		return nil
	}

	if u, err := url.Parse(imageURL); err != nil || u.Scheme != "https" {
		metrics.RecordMediaMirror("skipped", 0)
		return fmt.Errorf("reject non-https image url: %s", imageURL)
	}
	if err := fetcher.ValidateSourceURL(imageURL, true); err != nil {
		metrics.RecordMediaMirror("skipped", 0)
		return err
	}

	body, contentType, err := s.download(ctx, imageURL)
	if err != nil {
		metrics.RecordMediaMirror("failure", time.Since(start))
		return err
	}

	key := fmt.Sprintf("news/%s.%s", itemID, extensionFor(contentType, imageURL))

	_, err = s.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, retry.WithBackoff(ctx, retry.MediaMirrorConfig(), func() error {
			return s.put(ctx, key, body, contentType, itemID, imageURL)
		})
	})
	if err != nil {
		metrics.RecordMediaMirror("failure", time.Since(start))
		return fmt.Errorf("put object: %w", err)
	}

	record := &entity.ItemMedia{
		ItemID:      itemID,
		SourceURL:   imageURL,
		ObjectKey:   key,
		ContentType: contentType,
		ByteCount:   int64(len(body)),
		UpdatedAt:   time.Now(),
	}
	if err := record.Validate(); err != nil {
		metrics.RecordMediaMirror("failure", time.Since(start))
		return fmt.Errorf("validate media record: %w", err)
	}
	if err := s.media.Upsert(ctx, record); err != nil {
		metrics.RecordMediaMirror("failure", time.Since(start))
		return fmt.Errorf("upsert media record: %w", err)
	}

	metrics.RecordMediaMirror("success", time.Since(start))
	return nil
}

func (s *Store) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "KYNewsroomBot/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("image fetch: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("unsupported content-type %q", contentType)
	}

	limited := io.LimitReader(resp.Body, maxImageBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}

	return data, contentType, nil
}

func (s *Store) put(ctx context.Context, key string, body []byte, contentType, itemID, sourceURL string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
		Metadata: map[string]string{
			"item-id":    itemID,
			"source-url": sourceURL,
		},
	})
	return err
}

// PublicURL returns the public URL for a mirrored object's key, per the
// configured PublicURLBase.
func (s *Store) PublicURL(objectKey string) string {
	return strings.TrimRight(s.publicURLBase, "/") + "/" + path.Clean(objectKey)
}

// GetObject streams a mirrored object's body and content-type for the
// /api/media/:key handler. Callers must close the returned ReadCloser.
func (s *Store) GetObject(ctx context.Context, objectKey string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get object %q: %w", objectKey, err)
	}
	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// ItemIDForKey extracts the item ID embedded in a mirrored object key of
// the form "news/<item_id>.<ext>", used to look up the current record for
// a requested key so a stale key can redirect to the live one.
func ItemIDForKey(objectKey string) (string, bool) {
	base := path.Base(objectKey)
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" || name == base && path.Ext(base) == "" {
		return "", false
	}
	return name, true
}

// CurrentMedia returns the current ItemMedia record for the item a
// requested object key belongs to, or nil if the key doesn't resolve to a
// known item or no mirror exists yet.
func (s *Store) CurrentMedia(ctx context.Context, objectKey string) (*entity.ItemMedia, error) {
	itemID, ok := ItemIDForKey(objectKey)
	if !ok {
		return nil, nil
	}
	return s.media.Get(ctx, itemID)
}

func extensionFor(contentType, sourceURL string) string {
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "avif"):
		return "avif"
	}
	if u, err := url.Parse(sourceURL); err == nil {
		if ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); ext != "" && len(ext) <= 4 {
			return ext
		}
	}
	return "bin"
}
