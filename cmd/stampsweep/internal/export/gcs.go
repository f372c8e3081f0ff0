// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrInvalidGCSURL is returned for a destination that is not gs://bucket[/prefix].
var ErrInvalidGCSURL = errors.New("invalid gcs url")

// GCSLocation is a bucket plus an object-name prefix.
type GCSLocation struct {
	Bucket string
	Prefix string
}

// String renders the location as a gs:// URL.
func (l GCSLocation) String() string {
	if l.Prefix == "" {
		return "gs://" + l.Bucket
	}
	return "gs://" + l.Bucket + "/" + l.Prefix
}

// Object returns the object name for a file under this location.
func (l GCSLocation) Object(parts ...string) string {
	return path.Join(append([]string{l.Prefix}, parts...)...)
}

// ParseGCSURL parses "gs://bucket" or "gs://bucket/some/prefix".
func ParseGCSURL(raw string) (GCSLocation, error) {
	rest, ok := strings.CutPrefix(raw, "gs://")
	if !ok {
		return GCSLocation{}, fmt.Errorf("%w: %q must start with gs://", ErrInvalidGCSURL, raw)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return GCSLocation{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidGCSURL, raw)
	}
	return GCSLocation{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// Uploader copies a local file to an object in a bucket.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, bucket, object string) error
}

// GCSClient uploads files with the Cloud Storage client.
type GCSClient struct {
	storageClient *storage.Client
}

// NewGCSClient creates a storage client.
//
// # Inputs
//
//   - credentialsFile: Service account key; "" uses application default
//     credentials
func NewGCSClient(ctx context.Context, credentialsFile string) (*GCSClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not found at path: %s: %w", credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSClient{storageClient: client}, nil
}

// UploadFile streams localPath into bucket/object.
func (c *GCSClient) UploadFile(ctx context.Context, localPath, bucket, object string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open the local file: %s: %w", localPath, err)
	}
	defer localFile.Close()

	writer := c.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "text/plain; charset=utf-8"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, localFile); err != nil {
		writer.Close()
		return fmt.Errorf("failed to copy local file %s to GCS object %s: %w", localPath, object, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}
	return nil
}

// Close releases the storage client.
func (c *GCSClient) Close() error {
	return c.storageClient.Close()
}

// UploadArtifacts copies each file to loc/sweepID/<basename>.
//
// # Outputs
//
//   - []string: gs:// URLs of the uploaded objects, in input order
//   - error: Every failed upload joined; successful uploads are still returned
func UploadArtifacts(ctx context.Context, up Uploader, loc GCSLocation, sweepID string, paths ...string) ([]string, error) {
	var (
		urls []string
		errs []error
	)
	for _, p := range paths {
		if p == "" {
			continue
		}
		object := loc.Object(sweepID, filepath.Base(p))
		if err := up.UploadFile(ctx, p, loc.Bucket, object); err != nil {
			errs = append(errs, err)
			continue
		}
		urls = append(urls, "gs://"+loc.Bucket+"/"+object)
	}
	return urls, errors.Join(errs...)
}

var _ Uploader = (*GCSClient)(nil)
