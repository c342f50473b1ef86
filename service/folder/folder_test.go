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

package folder

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fawa-io/fwdrop/pkg/datauri"
	"github.com/fawa-io/fwdrop/pkg/storage"
)

const root = "/srv/uploads"

func newService(t *testing.T) (*Service, *storage.FSStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(root, 0o755))
	store := storage.NewFSStore(fsys, root)
	return NewService(store), store, fsys
}

// brokenStore fails every call with err.
type brokenStore struct {
	storage.Store
	exists bool
	err    error
}

func (b brokenStore) FolderExists(context.Context, string) (bool, error) {
	if b.exists {
		return true, nil
	}
	return false, b.err
}

func (b brokenStore) MakeFolder(context.Context, string) error { return b.err }

func (b brokenStore) List(context.Context, string) ([]string, error) { return nil, b.err }

func TestEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, fsys := newService(t)

	require.NoError(t, svc.Ensure(ctx, "proj1"))
	require.NoError(t, svc.Ensure(ctx, "proj1"))

	entries, err := afero.ReadDir(fsys, root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "proj1", entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestEnsureCreatesParents(t *testing.T) {
	svc, _, fsys := newService(t)

	require.NoError(t, svc.Ensure(context.Background(), "a/b/c"))
	ok, err := afero.DirExists(fsys, root+"/a/b/c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureRejectsEmptyID(t *testing.T) {
	svc, _, fsys := newService(t)

	err := svc.Ensure(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	entries, err := afero.ReadDir(fsys, root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureStoreFailure(t *testing.T) {
	svc := NewService(brokenStore{err: errors.New("permission denied")})

	err := svc.Ensure(context.Background(), "proj1")
	require.Error(t, err)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestListEmptyFolder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	require.NoError(t, svc.Ensure(ctx, "fresh"))

	files, err := svc.List(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestListEmptyFolderWithBracketInID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	require.NoError(t, svc.Ensure(ctx, "a["))

	files, err := svc.List(ctx, "a[")
	require.NoError(t, err)
	assert.Equal(t, []string{}, files)
}

func TestListMissingFolder(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.List(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	assert.Contains(t, err.Error(), "folder ghost not found")
}

func TestListRejectsEmptyID(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.List(context.Background(), "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestListReturnsRootRelativePaths(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	for _, key := range []string{"f1/a.txt", "f1/b.txt", "f2/c.txt"} {
		_, err := store.Create(ctx, key, datauri.Encode([]byte(key), "text/plain"))
		require.NoError(t, err)
	}

	files, err := svc.List(ctx, "f1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"f1/a.txt", "f1/b.txt"}, files)
}

func TestListStoreFailure(t *testing.T) {
	svc := NewService(brokenStore{exists: true, err: errors.New("io error")})

	_, err := svc.List(context.Background(), "proj1")
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}
