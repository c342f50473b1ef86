// Copyright 2025 The fawa Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fawa-io/fwdrop/pkg/datauri"
	"github.com/fawa-io/fwdrop/pkg/fwlog"
)

// MinioConfig holds the connection settings for a MinIO or S3 bucket.
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// MinioStore keeps blobs as objects named by their key. A folder is a
// zero-byte "<id>/" marker object; objects below it are its children.
type MinioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStore connects to the endpoint and creates the bucket when it is
// missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint, credentials and bucket are required")
	}

	fwlog.Infof("Initializing MinIO store: endpoint=%s bucket=%s ssl=%v", cfg.Endpoint, cfg.Bucket, cfg.UseSSL)
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", cfg.Bucket, err)
		}
		fwlog.Infof("Successfully created MinIO bucket: %s", cfg.Bucket)
	}

	return &MinioStore{client: client, bucketName: cfg.Bucket}, nil
}

// Create implements Store.
func (s *MinioStore) Create(ctx context.Context, key, uri string) (*Blob, error) {
	data, mediaType, err := datauri.Decode(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mediaType,
	})
	if err != nil {
		return nil, fmt.Errorf("minio upload of %s failed: %w", key, err)
	}

	return &Blob{
		ID:        key,
		URI:       uri,
		Size:      int64(len(data)),
		MediaType: mediaType,
	}, nil
}

// Get implements Store.
func (s *MinioStore) Get(ctx context.Context, key string) (*Blob, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioErr(key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, translateMinioErr(key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return &Blob{
		ID:        key,
		URI:       datauri.Encode(data, info.ContentType),
		Size:      int64(len(data)),
		MediaType: info.ContentType,
	}, nil
}

// MakeFolder implements Store by writing the folder marker object.
func (s *MinioStore) MakeFolder(ctx context.Context, folderID string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, folderPrefix(folderID), bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("create folder marker for %s: %w", folderID, err)
	}
	return nil
}

// FolderExists implements Store. A folder exists when any object, the
// marker included, carries its prefix.
func (s *MinioStore) FolderExists(ctx context.Context, folderID string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:  folderPrefix(folderID),
		MaxKeys: 1,
	})
	for object := range objectCh {
		if object.Err != nil {
			return false, object.Err
		}
		return true, nil
	}
	return false, nil
}

// List implements Store with a non-recursive listing, so nested folders show
// up once as their own key.
func (s *MinioStore) List(ctx context.Context, folderID string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := folderPrefix(folderID)
	keys := make([]string, 0)
	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		if key, ok := childKey(prefix, object.Key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func folderPrefix(folderID string) string {
	return strings.TrimSuffix(folderID, "/") + "/"
}

// childKey maps a listed object name to a listing entry; the folder's own
// marker is skipped.
func childKey(prefix, name string) (string, bool) {
	if name == prefix || !strings.HasPrefix(name, prefix) {
		return "", false
	}
	return strings.TrimSuffix(name, "/"), true
}

func translateMinioErr(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrNotFound
	}
	return fmt.Errorf("minio get %s: %w", key, err)
}
