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

package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fawa-io/fwdrop/pkg/datauri"
	"github.com/fawa-io/fwdrop/pkg/storage"
	"github.com/fawa-io/fwdrop/service/folder"
)

const root = "/srv/uploads"

func newStore(t *testing.T) (*storage.FSStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(root, 0o755))
	return storage.NewFSStore(fsys, root), fsys
}

type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) Create(context.Context, string, string) (*storage.Blob, error) {
	return nil, f.err
}

func (f failingStore) Get(context.Context, string) (*storage.Blob, error) {
	return nil, f.err
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	store, fsys := newStore(t)
	h := NewHandler(store)

	res, err := h.Upload(ctx, Input{
		FolderID: "proj1",
		File:     &File{Name: "hello.txt", MediaType: "text/plain", Data: []byte("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, &Result{ID: "proj1/hello.txt"}, res)

	got, err := afero.ReadFile(fsys, root+"/proj1/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestUploadThenList(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	h := NewHandler(store)

	_, err := h.Upload(ctx, Input{FolderID: "f1", File: &File{Name: "a.txt", Data: []byte("B")}})
	require.NoError(t, err)

	files, err := folder.NewService(store).List(ctx, "f1")
	require.NoError(t, err)
	assert.Contains(t, files, "f1/a.txt")
}

func TestUploadResponseHasNoContent(t *testing.T) {
	store, _ := newStore(t)
	h := NewHandler(store)
	content := []byte("top secret payload")

	res, err := h.Upload(context.Background(), Input{
		FolderID: "p",
		File:     &File{Name: "s.txt", MediaType: "text/plain", Data: content},
	})
	require.NoError(t, err)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p/s.txt"}`, string(body))
	assert.NotContains(t, string(body), string(content))
	assert.NotContains(t, string(body), base64.StdEncoding.EncodeToString(content))
	assert.NotContains(t, string(body), "data:")
}

func TestUploadOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	h := NewHandler(store)

	for _, content := range []string{"first", "second"} {
		_, err := h.Upload(ctx, Input{
			FolderID: "f1",
			File:     &File{Name: "a.txt", MediaType: "text/plain", Data: []byte(content)},
		})
		require.NoError(t, err)
	}

	blob, err := h.Get(ctx, "f1/a.txt")
	require.NoError(t, err)
	data, _, err := datauri.Decode(blob.URI)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestUploadInvalidInput(t *testing.T) {
	store, fsys := newStore(t)
	h := NewHandler(store)

	testCases := []struct {
		name string
		in   Input
		msg  string
	}{
		{"missing folder", Input{File: &File{Name: "a.txt"}}, "missing folderId"},
		{"missing file", Input{FolderID: "f1"}, "missing file uri"},
		{"missing file name", Input{FolderID: "f1", File: &File{Data: []byte("x")}}, "missing file name"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Upload(context.Background(), tc.in)
			require.Error(t, err)
			assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	entries, err := afero.ReadDir(fsys, root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadStoreFailure(t *testing.T) {
	h := NewHandler(failingStore{err: errors.New("disk full")})

	_, err := h.Upload(context.Background(), Input{FolderID: "f", File: &File{Name: "a"}})
	require.Error(t, err)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	h := NewHandler(store)

	_, err := h.Get(ctx, "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.Get(ctx, "nope/x")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = NewHandler(failingStore{err: errors.New("boom")}).Get(ctx, "a/b")
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestPrepare(t *testing.T) {
	d, err := prepare(Input{
		FolderID: "proj1",
		File:     &File{Name: "hello.txt", MediaType: "text/plain", Data: []byte("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "proj1/hello.txt", d.key)

	data, mt, err := datauri.Decode(d.uri)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, "text/plain", mt)
}
