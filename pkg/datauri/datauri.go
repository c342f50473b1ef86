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

// Package datauri converts between raw bytes and RFC 2397 data URIs, the
// transfer representation handed to blob stores.
package datauri

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

// DefaultMediaType is used when a payload arrives without a usable type.
const DefaultMediaType = "application/octet-stream"

// ErrMalformed is returned when a string is not a valid data URI.
var ErrMalformed = errors.New("malformed data uri")

// Encode returns data as a base64 data URI tagged with mediaType.
func Encode(data []byte, mediaType string) string {
	base, params := splitMediaType(mediaType)
	pairs := make([]string, 0, 2*len(params))
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, k, params[k])
	}
	return dataurl.New(data, base, pairs...).String()
}

// Decode parses uri and returns its payload and media type, parameters
// included.
func Decode(uri string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mt := du.ContentType()
	if len(du.Params) > 0 {
		if formatted := mime.FormatMediaType(mt, du.Params); formatted != "" {
			mt = formatted
		}
	}
	return du.Data, mt, nil
}

// splitMediaType never fails: anything mime cannot parse becomes
// DefaultMediaType.
func splitMediaType(mediaType string) (string, map[string]string) {
	if mediaType == "" {
		return DefaultMediaType, nil
	}
	base, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return DefaultMediaType, nil
	}
	if typ, sub, ok := strings.Cut(base, "/"); !ok || typ == "" || sub == "" {
		return DefaultMediaType, nil
	}
	return base, params
}
