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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/fawa-io/fwdrop/pkg/datauri"
)

const (
	dirMode  = 0o755
	fileMode = 0o644

	// tmpDir holds partially written blobs, directly under the root.
	tmpDir = ".tmp"
)

// FSStore keeps blobs as plain files under an upload root. Every folder id
// is a directory and every key a file path below it.
type FSStore struct {
	fs       afero.Fs
	resolver Resolver
}

// NewFSStore returns a store writing through fsys below root.
func NewFSStore(fsys afero.Fs, root string) *FSStore {
	return &FSStore{fs: fsys, resolver: NewResolver(root)}
}

// Resolver exposes the path mapping used by the store.
func (s *FSStore) Resolver() Resolver {
	return s.resolver
}

// Create implements Store. Content is written to a temporary file and
// renamed into place, so concurrent writers to one key end with the last
// rename.
func (s *FSStore) Create(ctx context.Context, key, uri string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, mediaType, err := datauri.Decode(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	target := s.resolver.Resolve(key)
	if err := s.fs.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", key, err)
	}
	staging := s.resolver.Resolve(path.Join(tmpDir, uuid.NewString()))
	if err := s.fs.MkdirAll(filepath.Dir(staging), dirMode); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, staging, data, fileMode); err != nil {
		_ = s.fs.Remove(staging)
		return nil, fmt.Errorf("write %s: %w", key, err)
	}
	if err := s.fs.Rename(staging, target); err != nil {
		_ = s.fs.Remove(staging)
		return nil, fmt.Errorf("move %s into place: %w", key, err)
	}

	return &Blob{
		ID:        key,
		URI:       uri,
		Size:      int64(len(data)),
		MediaType: mediaType,
	}, nil
}

// Get implements Store. The media type is not persisted; it is guessed from
// the file extension, then from the content.
func (s *FSStore) Get(ctx context.Context, key string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := s.resolver.Resolve(key)
	info, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(p))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return &Blob{
		ID:        key,
		URI:       datauri.Encode(data, mediaType),
		Size:      int64(len(data)),
		MediaType: mediaType,
	}, nil
}

// MakeFolder implements Store.
func (s *FSStore) MakeFolder(ctx context.Context, folderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fs.MkdirAll(s.resolver.Resolve(folderID), dirMode)
}

// FolderExists implements Store. Any entry at the resolved path counts.
func (s *FSStore) FolderExists(ctx context.Context, folderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(s.fs, s.resolver.Resolve(folderID))
}

// List implements Store by reading the folder directory, sorted by name.
// A missing folder or one that is a regular file has no children.
func (s *FSStore) List(ctx context.Context, folderID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := s.resolver.Resolve(folderID)
	keys := make([]string, 0)
	if ok, err := afero.DirExists(s.fs, dir); err != nil {
		return nil, fmt.Errorf("stat %s: %w", folderID, err)
	} else if !ok {
		return keys, nil
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folderID, err)
	}
	for _, e := range entries {
		rel, err := s.resolver.Rel(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if rel == tmpDir {
			continue
		}
		keys = append(keys, rel)
	}
	return keys, nil
}
