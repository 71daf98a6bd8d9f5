package report

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"dqcheck/internal/validation"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStoreConfig addresses an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// objectPutter is the part of *minio.Client the sink uses.
type objectPutter interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStore publishes the generated html site to a bucket. It must run
// after the HTMLSite sink that renders siteDir.
type ObjectStore struct {
	client  objectPutter
	cfg     ObjectStoreConfig
	siteDir string
	log     *zap.Logger
}

// NewObjectStore connects to cfg.Endpoint with static credentials.
func NewObjectStore(cfg ObjectStoreConfig, siteDir string, log *zap.Logger) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ObjectStore{client: client, cfg: cfg, siteDir: siteDir, log: log}, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

func (o *ObjectStore) Name() string { return "object_store" }

// Emit uploads every file of the site. Temp files left by interrupted writes
// are skipped.
func (o *ObjectStore) Emit(ctx context.Context, _ *validation.Result) error {
	if !siteExists(o.siteDir) {
		return fmt.Errorf("object store: no site rendered in %s; html_site must run first", o.siteDir)
	}
	if err := o.ensureBucket(ctx); err != nil {
		return err
	}

	uploaded := 0
	err := filepath.WalkDir(o.siteDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(o.siteDir, p)
		if err != nil {
			return err
		}
		key := ObjectKey(o.cfg.Prefix, rel)
		if _, err := o.client.FPutObject(ctx, o.cfg.Bucket, key, p, minio.PutObjectOptions{
			ContentType:  contentType(p),
			CacheControl: "no-cache",
		}); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}
	o.log.Info("site published",
		zap.String("bucket", o.cfg.Bucket),
		zap.String("prefix", o.cfg.Prefix),
		zap.Int("objects", uploaded),
	)
	return nil
}

func (o *ObjectStore) ensureBucket(ctx context.Context) error {
	ok, err := o.client.BucketExists(ctx, o.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("object store: bucket exists: %w", err)
	}
	if ok {
		return nil
	}
	if err := o.client.MakeBucket(ctx, o.cfg.Bucket, minio.MakeBucketOptions{Region: o.cfg.Region}); err != nil {
		return fmt.Errorf("object store: make bucket: %w", err)
	}
	return nil
}

// ObjectKey joins prefix and a site-relative file path into a bucket key.
func ObjectKey(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

func contentType(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// siteExists reports whether dir has been rendered.
func siteExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, IndexPage))
	return err == nil
}
