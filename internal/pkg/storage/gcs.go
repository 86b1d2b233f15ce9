package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

type GCSOptions struct {
	// Client overrides the default application-credentials client.
	Client *gcs.Client
	// GoogleAccessID and PrivateKey sign URLs; without them PresignGet fails
	// with ErrMissingSigner.
	GoogleAccessID string
	PrivateKey     []byte
}

type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle

	accessID   string
	privateKey []byte
}

func NewGCS(ctx context.Context, bucket string, opts GCSOptions) (*GCS, error) {
	client := opts.Client
	if client == nil {
		c, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: gcs client: %w", err)
		}
		client = c
	}

	return &GCS{
		client:     client,
		bucket:     client.Bucket(bucket),
		accessID:   opts.GoogleAccessID,
		privateKey: opts.PrivateKey,
	}, nil
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.Metadata

	if _, err := io.Copy(w, r); err != nil {
		return ObjectInfo{}, errors.Join(err, w.Close())
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, err
	}

	return gcsInfo(w.Attrs()), nil
}

func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, ObjectInfo{}, gcsErr(key, err)
	}

	return r, ObjectInfo{
		Key:         key,
		Size:        r.Attrs.Size,
		ContentType: r.Attrs.ContentType,
		UpdatedAt:   r.Attrs.LastModified,
	}, nil
}

func (g *GCS) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := g.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return ObjectInfo{}, gcsErr(key, err)
	}
	return gcsInfo(attrs), nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := g.bucket.Object(key).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (g *GCS) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if g.accessID == "" || len(g.privateKey) == 0 {
		return "", ErrMissingSigner
	}

	return g.bucket.SignedURL(key, &gcs.SignedURLOptions{
		Method:         http.MethodGet,
		Expires:        time.Now().Add(expiry),
		GoogleAccessID: g.accessID,
		PrivateKey:     g.privateKey,
		Scheme:         gcs.SigningSchemeV4,
	})
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func gcsErr(key string, err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

func gcsInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	if attrs == nil {
		return ObjectInfo{}
	}
	return ObjectInfo{
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
		UpdatedAt:   attrs.Updated,
	}
}
