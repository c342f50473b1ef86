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

// Package upload stores single-file uploads in a folder of the blob store.
//
// An upload runs as a short pipeline: prepare validates the request and
// turns the file into a data URI plus its storage key, the store persists
// it, and sanitize strips the payload from what goes back to the client.
package upload

import (
	"context"
	"errors"
	"path"

	"connectrpc.com/connect"
	"github.com/dustin/go-humanize"

	"github.com/fawa-io/fwdrop/pkg/datauri"
	"github.com/fawa-io/fwdrop/pkg/fwlog"
	"github.com/fawa-io/fwdrop/pkg/storage"
)

// File is one uploaded file as received from the client.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Input is an upload request. File is nil when the request carried none.
type Input struct {
	FolderID string
	File     *File
}

// Result is what the client learns about a stored upload.
type Result struct {
	ID string `json:"id"`
}

// draft is an upload ready to be handed to the store.
type draft struct {
	key string
	uri string
}

// Handler runs uploads against a blob store.
type Handler struct {
	store storage.Store
}

// NewHandler returns a Handler writing to store.
func NewHandler(store storage.Store) *Handler {
	return &Handler{store: store}
}

// Upload stores in.File under "<folder>/<filename>". An existing blob with
// the same key is overwritten.
func (h *Handler) Upload(ctx context.Context, in Input) (*Result, error) {
	d, err := prepare(in)
	if err != nil {
		return nil, err
	}

	blob, err := h.store.Create(ctx, d.key, d.uri)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidURI) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		fwlog.Errorf("Failed to store %s: %v", d.key, err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	res := sanitize(blob)
	fwlog.Infof("after uploading file %s", res.ID)
	return res, nil
}

// Get returns a stored blob, content included as a data URI.
func (h *Handler) Get(ctx context.Context, key string) (*storage.Blob, error) {
	if key == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing id"))
	}
	blob, err := h.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("no record found for id '"+key+"'"))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return blob, nil
}

func prepare(in Input) (*draft, error) {
	if in.FolderID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing folderId"))
	}
	if in.File == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing file uri"))
	}
	if in.File.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing file name"))
	}

	fwlog.Infof("decoding file %s %s", in.File.Name, humanize.Bytes(uint64(len(in.File.Data))))
	d := &draft{
		key: path.Join(in.FolderID, in.File.Name),
		uri: datauri.Encode(in.File.Data, in.File.MediaType),
	}
	fwlog.Debugf("output filename with folder %s", d.key)
	return d, nil
}

// sanitize keeps only the key; the data URI never leaves the server.
func sanitize(blob *storage.Blob) *Result {
	return &Result{ID: blob.ID}
}
