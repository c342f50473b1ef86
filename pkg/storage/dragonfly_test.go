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
	"reflect"
	"testing"

	"github.com/go-redis/redismock/v9"

	"github.com/fawa-io/fwdrop/pkg/datauri"
)

var _ Store = (*DragonflyStore)(nil)

func TestDragonflyStore_Create(t *testing.T) {
	client, mock := redismock.NewClientMock()

	storage := &DragonflyStore{client: client}

	testCases := []struct {
		name    string
		key     string
		uri     string
		mocker  func()
		wantErr bool
	}{
		{
			name: "success",
			key:  "proj1/hello.txt",
			uri:  datauri.Encode([]byte("hi"), "text/plain"),
			mocker: func() {
				mock.ExpectHSet("blob:proj1/hello.txt", "type", "text/plain", "data", "hi").SetVal(2)
				mock.ExpectSet("folder:proj1", "1", 0).SetVal("OK")
				mock.ExpectSAdd("folder:proj1:entries", "proj1/hello.txt").SetVal(1)
			},
			wantErr: false,
		},
		{
			name: "nested key links every ancestor",
			key:  "a/b/c.bin",
			uri:  datauri.Encode([]byte{1}, "application/octet-stream"),
			mocker: func() {
				mock.ExpectHSet("blob:a/b/c.bin", "type", "application/octet-stream", "data", "\x01").SetVal(2)
				mock.ExpectSet("folder:a/b", "1", 0).SetVal("OK")
				mock.ExpectSAdd("folder:a/b:entries", "a/b/c.bin").SetVal(1)
				mock.ExpectSet("folder:a", "1", 0).SetVal("OK")
				mock.ExpectSAdd("folder:a:entries", "a/b").SetVal(1)
			},
			wantErr: false,
		},
		{
			name:    "invalid uri",
			key:     "proj1/bad",
			uri:     "plain text",
			mocker:  func() {},
			wantErr: true,
		},
		{
			name: "redis error",
			key:  "proj1/error.txt",
			uri:  datauri.Encode([]byte("x"), "text/plain"),
			mocker: func() {
				mock.ExpectHSet("blob:proj1/error.txt", "type", "text/plain", "data", "x").SetErr(errors.New("redis error"))
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.mocker()
			blob, err := storage.Create(context.Background(), tc.key, tc.uri)
			if (err != nil) != tc.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && blob.ID != tc.key {
				t.Errorf("Create() id = %q, want %q", blob.ID, tc.key)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestDragonflyStore_Get(t *testing.T) {
	client, mock := redismock.NewClientMock()

	storage := &DragonflyStore{client: client}

	testCases := []struct {
		name     string
		key      string
		mocker   func()
		wantData string
		wantType string
		wantErr  error
	}{
		{
			name: "success",
			key:  "proj1/hello.txt",
			mocker: func() {
				mock.ExpectHGetAll("blob:proj1/hello.txt").SetVal(map[string]string{
					"type": "text/plain",
					"data": "hi",
				})
			},
			wantData: "hi",
			wantType: "text/plain",
		},
		{
			name: "key not found",
			key:  "proj1/missing",
			mocker: func() {
				mock.ExpectHGetAll("blob:proj1/missing").SetVal(map[string]string{})
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.mocker()
			got, err := storage.Get(context.Background(), tc.key)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Get() error = %v, want %v", err, tc.wantErr)
			}
			if err == nil {
				data, mediaType, derr := datauri.Decode(got.URI)
				if derr != nil {
					t.Fatalf("Get() returned undecodable uri: %v", derr)
				}
				if string(data) != tc.wantData || mediaType != tc.wantType {
					t.Errorf("Get() = %q (%s), want %q (%s)", data, mediaType, tc.wantData, tc.wantType)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestDragonflyStore_MakeFolder(t *testing.T) {
	client, mock := redismock.NewClientMock()
	storage := &DragonflyStore{client: client}

	mock.ExpectSet("folder:a/b", "1", 0).SetVal("OK")
	mock.ExpectSet("folder:a", "1", 0).SetVal("OK")
	mock.ExpectSAdd("folder:a:entries", "a/b").SetVal(1)

	if err := storage.MakeFolder(context.Background(), "a/b"); err != nil {
		t.Fatalf("MakeFolder() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestDragonflyStore_FolderExists(t *testing.T) {
	client, mock := redismock.NewClientMock()
	storage := &DragonflyStore{client: client}

	mock.ExpectExists("folder:proj1").SetVal(1)
	mock.ExpectExists("folder:nope").SetVal(0)

	ok, err := storage.FolderExists(context.Background(), "proj1")
	if err != nil || !ok {
		t.Errorf("FolderExists(proj1) = %v, %v", ok, err)
	}
	ok, err = storage.FolderExists(context.Background(), "nope")
	if err != nil || ok {
		t.Errorf("FolderExists(nope) = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestDragonflyStore_List(t *testing.T) {
	client, mock := redismock.NewClientMock()
	storage := &DragonflyStore{client: client}

	mock.ExpectSMembers("folder:proj1:entries").SetVal([]string{"proj1/b.txt", "proj1/a.txt"})
	mock.ExpectSMembers("folder:empty:entries").SetVal([]string{})

	got, err := storage.List(context.Background(), "proj1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"proj1/a.txt", "proj1/b.txt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	got, err = storage.List(context.Background(), "empty")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List() on empty folder = %#v, want empty slice", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestNormalize(t *testing.T) {
	for in, want := range map[string]string{
		"proj1":        "proj1",
		"proj1/":       "proj1",
		"a//b/../c":    "a/c",
		"/abs/x":       "abs/x",
		"../../escape": "escape",
		"":             "",
	} {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
