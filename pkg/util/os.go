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

package util

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

const (
	// owner rwx, everyone else may list and read
	dirMode = 0o755
)

// Exist reports whether dirpath exists on fs and is a directory.
func Exist(fs afero.Fs, dirpath string) bool {
	ok, err := afero.DirExists(fs, dirpath)
	return err == nil && ok
}

// EnsureDir creates dirpath and any missing parents. It is a no-op when the
// directory is already there and fails when dirpath names a regular file.
func EnsureDir(fs afero.Fs, dirpath string) error {
	if Exist(fs, dirpath) {
		return nil
	}
	if ok, _ := afero.Exists(fs, dirpath); ok {
		return &os.PathError{Op: "mkdir", Path: dirpath, Err: fmt.Errorf("not a directory")}
	}

	return fs.MkdirAll(dirpath, dirMode)
}
