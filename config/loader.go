package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/automl/errors"
)

// EnvPrefix marks environment variables meant for the engine. The prefix is
// stripped before binding, so AUTOML_SEARCH_FOLDS sets search.folds.
const EnvPrefix = "AUTOML_"

// FileSystem is the file access the loader needs. Tests swap it out.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the real filesystem and process environment.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// ResolvedFiles are the config and env files a load will read.
// Empty means none was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver locates config and env files for a binary.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles keeps explicit paths and searches for the rest. Config
// files are tried as <name>.yml under ., ./config and ./cmd/<name>, then
// config.yml and automl.yml. Env files are .env.<name> before .env, in
// ./cmd/<name>, ./config and the working directory.
func (r *Resolver) ResolveFiles(name string, lc LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(
			name+".yml",
			filepath.Join("config", name+".yml"),
			filepath.Join("cmd", name, "config.yml"),
			filepath.Join("config", "config.yml"),
			"config.yml",
			"automl.yml",
		)
	}
	if files.EnvFile == "" {
		var candidates []string
		for _, file := range []string{".env." + name, ".env"} {
			for _, dir := range []string{filepath.Join("cmd", name), "config", "."} {
				candidates = append(candidates, filepath.Join(dir, file))
			}
		}
		files.EnvFile = r.first(candidates...)
	}
	return files
}

func (r *Resolver) first(paths ...string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoaderConfig holds the loader's dependencies and file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig reads the YAML file and environment into cfg, which must be a
// pointer to a struct with mapstructure tags. An env file is loaded into the
// process environment first, so its values override the YAML file the same
// way real environment variables do. A missing config file is not an error.
func LoadConfig(name string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(name, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Configurationf("failed to read config file %s", files.ConfigFile).WithCause(err)
		}
	}
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return errors.Configurationf("failed to load env file %s", files.EnvFile).WithCause(err)
		}
	}

	for _, key := range settingKeys(reflect.TypeOf(cfg), "") {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return errors.Configurationf("binding %s", key).WithCause(err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return errors.Configurationf("failed to unmarshal config for %s", name).WithCause(err)
	}
	return nil
}

// EnvName returns the environment variable that overrides a setting key:
// search.max_batches is AUTOML_SEARCH_MAX_BATCHES.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// settingKeys lists the dotted mapstructure keys of every leaf field of t.
// Squashed embedded structs contribute their keys at the parent level.
func settingKeys(t reflect.Type, prefix string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if tag == "-" {
			continue
		}
		if strings.Contains(opts, "squash") {
			keys = append(keys, settingKeys(f.Type, prefix)...)
			continue
		}
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := prefix + tag
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			keys = append(keys, settingKeys(ft, key+".")...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
