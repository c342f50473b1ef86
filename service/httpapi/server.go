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

// Package httpapi exposes the folder and upload services over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/fawa-io/fwdrop/pkg/fwlog"
	"github.com/fawa-io/fwdrop/pkg/storage"
	"github.com/fawa-io/fwdrop/pkg/util"
	"github.com/fawa-io/fwdrop/service/upload"
)

const (
	// multipart field names
	fileField   = "uri"
	folderField = "folderId"

	defaultMaxMemory = 32 << 20
	maxJSONBody      = 1 << 20
)

// FolderService is the part of folder.Service the server needs.
type FolderService interface {
	Ensure(ctx context.Context, folderID string) error
	List(ctx context.Context, folderID string) ([]string, error)
}

// UploadService is the part of upload.Handler the server needs.
type UploadService interface {
	Upload(ctx context.Context, in upload.Input) (*upload.Result, error)
	Get(ctx context.Context, key string) (*storage.Blob, error)
}

// Options configures a Server.
type Options struct {
	Folders FolderService
	Uploads UploadService

	// StaticDir is served for GET requests no other route matches. Empty
	// disables static files.
	StaticDir string

	// MaxMemory bounds the part of a multipart body held in memory.
	MaxMemory int64
}

// Server routes requests to the services and turns their errors into HTTP
// responses.
type Server struct {
	mux       *http.ServeMux
	folders   FolderService
	uploads   UploadService
	maxMemory int64
	errors    *connect.ErrorWriter
}

// NewServer wires the routes.
func NewServer(opts Options) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		folders:   opts.Folders,
		uploads:   opts.Uploads,
		maxMemory: opts.MaxMemory,
		errors:    connect.NewErrorWriter(),
	}
	if s.maxMemory <= 0 {
		s.maxMemory = defaultMaxMemory
	}

	s.mux.HandleFunc("POST /new-folder", s.handleNewFolder)
	s.mux.HandleFunc("POST /uploaded", s.handleUploaded)
	s.mux.HandleFunc("POST /uploads", s.handleUpload)
	s.mux.HandleFunc("GET /uploads/{id...}", s.handleGetUpload)
	if opts.StaticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}
	return s
}

// ServeHTTP implements http.Handler. Each request gets an id for the access
// log, and panics are answered with an internal error.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := util.Generaterandomstring(8)
	w.Header().Set("X-Request-Id", reqID)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			fwlog.Errorf("[%s] panic serving %s %s: %v", reqID, r.Method, r.URL.Path, p)
			s.writeError(rec, r, connect.NewError(connect.CodeInternal, fmt.Errorf("%v", p)))
		}
		fwlog.Infof("[%s] %s %s %d %s", reqID, r.Method, r.URL.Path, rec.status, time.Since(start))
	}()

	s.mux.ServeHTTP(rec, r)
}

type folderRequest struct {
	FolderID string `json:"folderId"`
}

// decodeFolderRequest parses a {"folderId": "..."} body and requires the id.
func decodeFolderRequest(r *http.Request) (*folderRequest, error) {
	var req folderRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing folder id"))
		}
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid request body: %w", err))
	}
	if req.FolderID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing folder id"))
	}
	return &req, nil
}

func (s *Server) handleNewFolder(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFolderRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.folders.Ensure(r.Context(), req.FolderID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUploaded(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFolderRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	files, err := s.folders.List(r.Context(), req.FolderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, files)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	in, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.uploads.Upload(r.Context(), *in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	blob, err := s.uploads.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, blob)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fwlog.Errorf("Failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if connect.CodeOf(err) == connect.CodeInternal {
		fwlog.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		fwlog.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	if werr := s.errors.Write(w, r, err); werr != nil {
		fwlog.Errorf("Failed to write error response: %v", werr)
	}
}

// statusRecorder remembers the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
