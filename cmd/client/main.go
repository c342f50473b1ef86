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

// Command client talks to a fwdrop server:
//
//	client [--server URL] new-folder FOLDER
//	client [--server URL] upload FOLDER FILE
//	client [--server URL] list FOLDER
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/fawa-io/fwdrop/pkg/fwlog"
)

type client struct {
	base string
	http *http.Client
}

func main() {
	server := pflag.String("server", "http://localhost:3030", "Base URL of the fwdrop server")
	timeout := pflag.Duration("timeout", time.Minute, "Request timeout")
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: client [--server URL] new-folder|list FOLDER | upload FOLDER FILE")
		os.Exit(2)
	}

	c := &client{
		base: strings.TrimSuffix(*server, "/"),
		http: &http.Client{Timeout: *timeout},
	}
	ctx := context.Background()

	var err error
	switch args[0] {
	case "new-folder":
		err = c.newFolder(ctx, args[1])
		if err == nil {
			fmt.Printf("folder %s ready\n", args[1])
		}
	case "list":
		var files []string
		files, err = c.list(ctx, args[1])
		for _, f := range files {
			fmt.Println(f)
		}
	case "upload":
		if len(args) < 3 {
			fwlog.Fatal("upload needs FOLDER and FILE")
		}
		var id string
		id, err = c.upload(ctx, args[1], args[2])
		if err == nil {
			fmt.Println(id)
		}
	default:
		fwlog.Fatalf("unknown command %q", args[0])
	}
	if err != nil {
		fwlog.Fatal(err)
	}
}

func (c *client) newFolder(ctx context.Context, folderID string) error {
	resp, err := c.postJSON(ctx, "/new-folder", folderID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *client) list(ctx context.Context, folderID string) ([]string, error) {
	resp, err := c.postJSON(ctx, "/uploaded", folderID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var files []string
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return files, nil
}

func (c *client) upload(ctx context.Context, folderID, name string) (string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("folderId", folderID); err != nil {
		return "", err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "uri",
		"filename": filepath.Base(name),
	}))
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		h.Set("Content-Type", ct)
	} else {
		h.Set("Content-Type", http.DetectContentType(data))
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/uploads", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode upload result: %w", err)
	}
	return res.ID, nil
}

func (c *client) postJSON(ctx context.Context, path, folderID string) (*http.Response, error) {
	payload, err := json.Marshal(map[string]string{"folderId": folderID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// checkStatus turns a non-200 reply into an error carrying the server's
// message.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Message != "" {
		return fmt.Errorf("%s: %s (%s)", resp.Status, e.Message, e.Code)
	}
	return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
}
