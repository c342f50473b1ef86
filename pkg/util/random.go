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
	"math/rand"
	"sync"
	"time"
)

var runesofrandom = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

var (
	mu sync.Mutex
	r  = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Generaterandomstring returns n alphanumeric characters. It is used for
// request ids in access logs and is not suitable for secrets.
func Generaterandomstring(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]rune, n)
	mu.Lock()
	for i := range b {
		b[i] = runesofrandom[r.Intn(len(runesofrandom))]
	}
	mu.Unlock()
	return string(b)
}
