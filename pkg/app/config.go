// Copyright 2026 The Gemo Authors.
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

package app

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gosuri/uitable"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFlagName = "config"
	// EnvPrefix prefixes every environment variable mapped onto a flag, e.g. GEMO_LOOP_FPS.
	EnvPrefix = "GEMO"
)

var cfgFile string

func addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile,
		"Read configuration from the specified file (yaml, json or toml).")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the config file, if one was given.
func loadConfig() error {
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file %q: %w", cfgFile, err)
	}
	return nil
}

// ConfigFile returns the configuration file in use, or "".
func ConfigFile() string {
	return viper.ConfigFileUsed()
}

// Decode unmarshals the effective configuration (file, env and flags) into out.
func Decode(out any) error {
	return viper.Unmarshal(out)
}

// ErrNoConfigFile is returned by WatchConfig when the command runs without --config.
var ErrNoConfigFile = errors.New("no configuration file to watch")

// WatchConfig calls onChange each time the configuration file is written.
// Callers re-read the configuration with Decode.
func WatchConfig(onChange func(e fsnotify.Event)) error {
	if viper.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(e)
	})
	viper.WatchConfig()
	return nil
}

// PrintConfig writes the effective configuration as a two column table.
func PrintConfig(w io.Writer) {
	keys := viper.AllKeys()
	sort.Strings(keys)

	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("KEY", "VALUE")
	for _, k := range keys {
		v := viper.Get(k)
		if isSecret(k) && fmt.Sprint(v) != "" {
			v = "******"
		}
		table.AddRow(k, v)
	}
	fmt.Fprintln(w, table)
}

func isSecret(key string) bool {
	return strings.Contains(key, "password") || strings.Contains(key, "secret")
}
