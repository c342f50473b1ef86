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
	"path/filepath"
)

// Resolver maps folder ids and blob keys to absolute paths under the upload
// root. It is a plain join: "a/../../etc" escapes the root.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver rooted at root, cleaned.
func NewResolver(root string) Resolver {
	return Resolver{root: filepath.Clean(root)}
}

// Root returns the upload root.
func (r Resolver) Root() string {
	return r.root
}

// Resolve joins id onto the upload root.
func (r Resolver) Resolve(id string) string {
	return filepath.Join(r.root, filepath.FromSlash(id))
}

// Rel returns p relative to the upload root with forward slashes.
func (r Resolver) Rel(p string) (string, error) {
	rel, err := filepath.Rel(r.root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
