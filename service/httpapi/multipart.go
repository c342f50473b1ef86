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

package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"connectrpc.com/connect"

	"github.com/fawa-io/fwdrop/pkg/fwlog"
	"github.com/fawa-io/fwdrop/service/upload"
)

// readUpload extracts the folder id and the single file of a multipart
// upload. Missing values are left empty for the upload handler to reject.
func (s *Server) readUpload(r *http.Request) (*upload.Input, error) {
	if err := r.ParseMultipartForm(s.maxMemory); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("malformed multipart body: %w", err))
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			fwlog.Warnf("Failed to remove multipart temp files: %v", err)
		}
	}()

	in := &upload.Input{}
	if values := r.MultipartForm.Value[folderField]; len(values) > 0 {
		in.FolderID = values[0]
	}

	headers := r.MultipartForm.File[fileField]
	switch len(headers) {
	case 0:
		return in, nil
	case 1:
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("expected a single file in field "+fileField))
	}

	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("open uploaded file: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("read uploaded file: %w", err))
	}

	in.File = &upload.File{
		Name:      fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Data:      data,
	}
	return in, nil
}
