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
	"fmt"
	"path"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/fawa-io/fwdrop/pkg/datauri"
)

// DragonflyStore implements the Store interface using Dragonfly/Redis.
//
// Layout:
//
//	blob:<key>            hash {type, data}
//	folder:<id>           marker string
//	folder:<id>:entries   set of direct children
type DragonflyStore struct {
	client redis.Cmdable
}

// NewDragonflyStore creates a new instance of DragonflyStore and checks the
// connection.
func NewDragonflyStore(ctx context.Context, addr string) (*DragonflyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping dragonfly at %s: %w", addr, err)
	}
	return &DragonflyStore{client: client}, nil
}

func blobKey(key string) string { return "blob:" + key }

func folderKey(id string) string { return "folder:" + id }

func entriesKey(id string) string { return "folder:" + id + ":entries" }

// normalize cleans name as a rooted path and drops the leading slash, so
// "a//b/../c" and "/a/c" both become "a/c".
func normalize(name string) string { return path.Clean("/" + name)[1:] }

func isTop(dir string) bool { return dir == "." || dir == "/" || dir == "" }

// Create implements Store. Parent folders are registered the way mkdir -p
// would create them.
func (d *DragonflyStore) Create(ctx context.Context, key, uri string) (*Blob, error) {
	data, mediaType, err := datauri.Decode(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	name := normalize(key)

	if err := d.client.HSet(ctx, blobKey(name), "type", mediaType, "data", string(data)).Err(); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	if err := d.linkParents(ctx, name); err != nil {
		return nil, err
	}

	return &Blob{
		ID:        key,
		URI:       uri,
		Size:      int64(len(data)),
		MediaType: mediaType,
	}, nil
}

// Get implements Store.
func (d *DragonflyStore) Get(ctx context.Context, key string) (*Blob, error) {
	fields, err := d.client.HGetAll(ctx, blobKey(normalize(key))).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	data := []byte(fields["data"])
	return &Blob{
		ID:        key,
		URI:       datauri.Encode(data, fields["type"]),
		Size:      int64(len(data)),
		MediaType: fields["type"],
	}, nil
}

// MakeFolder implements Store.
func (d *DragonflyStore) MakeFolder(ctx context.Context, folderID string) error {
	name := normalize(folderID)
	if err := d.client.Set(ctx, folderKey(name), "1", 0).Err(); err != nil {
		return fmt.Errorf("mark folder %s: %w", folderID, err)
	}
	return d.linkParents(ctx, name)
}

// FolderExists implements Store.
func (d *DragonflyStore) FolderExists(ctx context.Context, folderID string) (bool, error) {
	n, err := d.client.Exists(ctx, folderKey(normalize(folderID))).Result()
	if err != nil {
		return false, fmt.Errorf("check folder %s: %w", folderID, err)
	}
	return n > 0, nil
}

// List implements Store. Entries come back sorted.
func (d *DragonflyStore) List(ctx context.Context, folderID string) ([]string, error) {
	members, err := d.client.SMembers(ctx, entriesKey(normalize(folderID))).Result()
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}
	keys := make([]string, 0, len(members))
	keys = append(keys, members...)
	sort.Strings(keys)
	return keys, nil
}

// linkParents walks from child up to the root, marking each ancestor folder
// and adding the level below to its entries.
func (d *DragonflyStore) linkParents(ctx context.Context, child string) error {
	for dir := path.Dir(child); !isTop(dir); child, dir = dir, path.Dir(dir) {
		if err := d.client.Set(ctx, folderKey(dir), "1", 0).Err(); err != nil {
			return fmt.Errorf("mark folder %s: %w", dir, err)
		}
		if err := d.client.SAdd(ctx, entriesKey(dir), child).Err(); err != nil {
			return fmt.Errorf("link %s into %s: %w", child, dir, err)
		}
	}
	return nil
}
