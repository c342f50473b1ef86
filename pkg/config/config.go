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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fawa-io/fwdrop/pkg/fwlog"
)

// Storage backends.
const (
	BackendFS        = "fs"
	BackendMinio     = "minio"
	BackendDragonfly = "dragonfly"
)

type Config struct {
	Addr      string `mapstructure:"addr"`
	RootDir   string `mapstructure:"rootDir"`
	Ephemeral bool   `mapstructure:"ephemeral"`
	StaticDir string `mapstructure:"staticDir"`
	MaxMemory int64  `mapstructure:"maxMemory"`
	CertFile  string `mapstructure:"certFile"`
	KeyFile   string `mapstructure:"keyFile"`
	LogLevel  string `mapstructure:"logLevel"`

	Storage   StorageConfig   `mapstructure:"storage"`
	Minio     MinioConfig     `mapstructure:"minio"`
	Dragonfly DragonflyConfig `mapstructure:"dragonfly"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	Bucket          string `mapstructure:"bucket"`
	UseSSL          bool   `mapstructure:"useSSL"`
}

type DragonflyConfig struct {
	Addr string `mapstructure:"addr"`
}

// UploadRoot is the directory all folders live in: "uploads" below the OS
// temp dir on ephemeral hosts, below RootDir otherwise.
func (c Config) UploadRoot() string {
	base := c.RootDir
	if c.Ephemeral {
		base = os.TempDir()
	}
	return filepath.Join(base, "uploads")
}

var (
	once sync.Once

	mu sync.RWMutex

	config Config
)

func InitConfig() error {
	var initErr error
	once.Do(func() {
		initErr = LoadAndWatch()
	})
	return initErr
}

func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return config
}

// LoadAndWatch loads flags, environment and config.yaml into the package
// configuration and watches the file. Only the log level is reloaded; the
// upload root and storage settings keep their startup values.
func LoadAndWatch() error {
	v, cfg, err := load(pflag.CommandLine, os.Args[1:], ".", "/etc/fwdrop/")
	if err != nil {
		return err
	}

	mu.Lock()
	config = cfg
	mu.Unlock()

	v.OnConfigChange(func(e fsnotify.Event) {
		fwlog.Infof("config file %s changed, reloading", e.Name)

		var next Config
		if err := v.Unmarshal(&next); err != nil {
			fwlog.Errorf("Error while reloading config: %v", err)
			return
		}
		newLogLevel, err := fwlog.ParseLevel(next.LogLevel)
		if err != nil {
			fwlog.Warnf("New log level in config is invalid: %v. Keeping previous level.", err)
			return
		}

		mu.Lock()
		config.LogLevel = next.LogLevel
		mu.Unlock()

		fwlog.SetLevel(newLogLevel)
		fwlog.Infof("Log level reloaded successfully to: %s", next.LogLevel)
	})
	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":3030")
	v.SetDefault("rootDir", ".")
	v.SetDefault("ephemeral", false)
	v.SetDefault("staticDir", ".")
	v.SetDefault("maxMemory", int64(32<<20))
	v.SetDefault("certFile", "")
	v.SetDefault("keyFile", "")
	v.SetDefault("logLevel", "info")
	v.SetDefault("storage.backend", BackendFS)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.accessKeyID", "")
	v.SetDefault("minio.secretAccessKey", "")
	v.SetDefault("minio.bucket", "fwdrop")
	v.SetDefault("minio.useSSL", false)
	v.SetDefault("dragonfly.addr", "localhost:6379")
}

func registerFlags(fs *pflag.FlagSet) {
	fs.String("addr", "", "HTTP service address (e.g., '127.0.0.1:3030')")
	fs.String("rootDir", "", "Directory that holds the uploads folder")
	fs.Bool("ephemeral", false, "Keep uploads under the OS temp dir")
	fs.String("staticDir", "", "Directory served at /")
	fs.Int64("maxMemory", 0, "Bytes of a multipart upload kept in memory before spilling to disk")
	fs.String("certFile", "", "Path to the TLS certificate file.")
	fs.String("keyFile", "", "Path to the TLS private key file.")
	fs.String("logLevel", "", "Log level: debug, info, warn, error")
	fs.String("storage.backend", "", "Blob store backend: fs, minio or dragonfly")
	fs.String("dragonfly.addr", "", "Dragonfly/Redis address")
	fs.String("minio.endpoint", "", "MinIO endpoint")
	fs.String("minio.bucket", "", "MinIO bucket")
}

// load builds a viper instance from flags parsed out of args, FWDROP_*
// environment variables, NOW, and the first config.yaml found in paths.
func load(fs *pflag.FlagSet, args []string, paths ...string) (*viper.Viper, Config, error) {
	v := viper.New()
	setDefaults(v)

	if fs.Lookup("addr") == nil {
		registerFlags(fs)
	}
	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return nil, Config{}, fmt.Errorf("failed to parse flags: %w", err)
		}
	}
	// only flags given on the command line override lower layers
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, Config{}, fmt.Errorf("failed to bind pflags: %w", bindErr)
	}

	v.SetEnvPrefix("FWDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("now", "NOW"); err != nil {
		return nil, Config{}, err
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fwlog.Infof("Config file not found.")
		} else {
			return nil, Config{}, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Config{}, fmt.Errorf("the initial configuration cannot be decoded into the struct: %w", err)
	}
	if v.GetString("now") != "" {
		cfg.Ephemeral = true
	}
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, Config{}, fmt.Errorf("resolve root dir %s: %w", cfg.RootDir, err)
	}
	cfg.RootDir = root

	switch cfg.Storage.Backend {
	case BackendFS, BackendMinio, BackendDragonfly:
	default:
		return nil, Config{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return v, cfg, nil
}
