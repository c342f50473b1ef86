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

// Package storage persists uploaded content. A Store takes content as a data
// URI keyed by "<folder>/<filename>" and keeps the decoded bytes in a
// filesystem, a MinIO bucket or a Dragonfly/Redis instance.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a blob or folder does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidURI is returned by Create when the payload is not a data URI.
	ErrInvalidURI = errors.New("invalid data uri")
)

// Blob describes one stored resource.
type Blob struct {
	ID        string `json:"id"`
	URI       string `json:"uri,omitempty"`
	Size      int64  `json:"size"`
	MediaType string `json:"-"`
}

// Store is the blob store contract used by the folder and upload services.
// Keys and folder ids use forward slashes and are relative to the store root.
// Implementations do not reject ".." segments.
type Store interface {
	// Create decodes uri and writes the bytes under key, replacing any
	// previous content. The returned blob carries the uri it was given.
	Create(ctx context.Context, key, uri string) (*Blob, error)

	// Get returns the blob stored under key with its content re-encoded as a
	// data URI.
	Get(ctx context.Context, key string) (*Blob, error)

	// MakeFolder creates folderID and missing parents. Idempotent.
	MakeFolder(ctx context.Context, folderID string) error

	// FolderExists reports whether folderID was created or received a blob.
	FolderExists(ctx context.Context, folderID string) (bool, error)

	// List returns the direct children of folderID as root-relative keys.
	List(ctx context.Context, folderID string) ([]string, error)
}
