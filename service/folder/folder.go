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

// Package folder creates upload folders and lists what they hold.
package folder

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/fawa-io/fwdrop/pkg/fwlog"
	"github.com/fawa-io/fwdrop/pkg/storage"
)

// Service manages folders in a blob store.
type Service struct {
	store storage.Store
}

// NewService returns a Service backed by store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Ensure creates folderID, parents included, unless something already
// exists there.
func (s *Service) Ensure(ctx context.Context, folderID string) error {
	fwlog.Debugf("new folder folderId %q", folderID)
	if folderID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("missing folder id"))
	}

	exists, err := s.store.FolderExists(ctx, folderID)
	if err != nil {
		fwlog.Errorf("Failed to check folder %s: %v", folderID, err)
		return connect.NewError(connect.CodeInternal, err)
	}
	if exists {
		return nil
	}
	if err := s.store.MakeFolder(ctx, folderID); err != nil {
		fwlog.Errorf("Failed to create folder %s: %v", folderID, err)
		return connect.NewError(connect.CodeInternal, err)
	}

	fwlog.Infof("made folder %s", folderID)
	return nil
}

// List returns the direct children of folderID, each prefixed with the
// folder id. The result is never nil.
func (s *Service) List(ctx context.Context, folderID string) ([]string, error) {
	fwlog.Debugf("list of uploaded files in folder %q", folderID)
	if folderID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing folder id"))
	}

	exists, err := s.store.FolderExists(ctx, folderID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if !exists {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("folder %s not found", folderID))
	}

	files, err := s.store.List(ctx, folderID)
	if err != nil {
		fwlog.Errorf("Failed to list folder %s: %v", folderID, err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if files == nil {
		files = []string{}
	}

	fwlog.Infof("found %d files in folder %s", len(files), folderID)
	return files, nil
}
