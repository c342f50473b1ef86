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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/fawa-io/fwdrop/pkg/config"
	"github.com/fawa-io/fwdrop/pkg/cors"
	"github.com/fawa-io/fwdrop/pkg/fwlog"
	"github.com/fawa-io/fwdrop/pkg/storage"
	"github.com/fawa-io/fwdrop/pkg/util"
	"github.com/fawa-io/fwdrop/service/folder"
	"github.com/fawa-io/fwdrop/service/httpapi"
	"github.com/fawa-io/fwdrop/service/upload"
)

func main() {
	if err := config.InitConfig(); err != nil {
		fwlog.Fatalf("Failed to initialize configuration: %v", err)
	}

	cfg := config.Get()

	logLevel, err := fwlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fwlog.Warnf("Invalid initial log level '%s': %v. Using default.", cfg.LogLevel, err)
	}
	fwlog.SetLevel(logLevel)
	fwlog.Infof("Logger initialized with level: %s", cfg.LogLevel)

	store, err := newStore(context.Background(), cfg)
	if err != nil {
		fwlog.Fatalf("Failed to initialize %s storage: %v", cfg.Storage.Backend, err)
	}

	api := httpapi.NewServer(httpapi.Options{
		Folders:   folder.NewService(store),
		Uploads:   upload.NewHandler(store),
		StaticDir: cfg.StaticDir,
		MaxMemory: cfg.MaxMemory,
	})

	dropSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           cors.NewCORS().Handler(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fwlog.Info("Shutting down server...")

		// Set timeout for HTTP server shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := dropSrv.Shutdown(ctx); err != nil {
			fwlog.Errorf("Server shutdown error: %v", err)
		}

		fwlog.Info("Server shutdown complete")
		os.Exit(0)
	}()

	fwlog.Infof("Server starting on %v", cfg.Addr)

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		if fileExists(cfg.CertFile) && fileExists(cfg.KeyFile) {
			fwlog.Infof("Starting HTTPS server with certificates: %s, %s", cfg.CertFile, cfg.KeyFile)
			if err := dropSrv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fwlog.Fatalf("Failed to start HTTPS server: %v", err)
			}
			return
		}
		fwlog.Warnf("Certificate files not found, falling back to HTTP mode")
	}

	// Plaintext also speaks HTTP/2 for clients that know to ask.
	dropSrv.Handler = h2c.NewHandler(dropSrv.Handler, &http2.Server{})
	fwlog.Infof("Starting HTTP server")
	if err := dropSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fwlog.Fatalf("Failed to start HTTP server: %v", err)
	}
}

// newStore builds the configured blob store. The fs backend creates the
// upload root when it is missing.
func newStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMinio:
		s, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKeyID,
			SecretAccessKey: cfg.Minio.SecretAccessKey,
			Bucket:          cfg.Minio.Bucket,
			UseSSL:          cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendDragonfly:
		s, err := storage.NewDragonflyStore(ctx, cfg.Dragonfly.Addr)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		root := cfg.UploadRoot()
		fsys := afero.NewOsFs()
		if err := util.EnsureDir(fsys, root); err != nil {
			return nil, err
		}
		fwlog.Infof("Storing uploads in %s", root)
		return storage.NewFSStore(fsys, root), nil
	}
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
