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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"
)

type demoOptions struct {
	Loop struct {
		FPS float64 `mapstructure:"fps"`
	} `mapstructure:"loop"`
	Steer struct {
		Pulse time.Duration `mapstructure:"pulse"`
	} `mapstructure:"steer"`
	Name string `mapstructure:"name"`

	completed bool
}

func (o *demoOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("demo")
	fs.Float64Var(&o.Loop.FPS, "loop.fps", 5, "fps")
	fs.DurationVar(&o.Steer.Pulse, "steer.pulse", 100*time.Millisecond, "pulse")
	fs.StringVar(&o.Name, "name", "default", "name")
	return fss
}

func (o *demoOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *demoOptions) Validate() error {
	if o.Loop.FPS <= 0 {
		return errors.New("fps must be positive")
	}
	return nil
}

func TestAppMergesFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "pilot.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("loop:\n  fps: 2\nsteer:\n  pulse: 250ms\n"), 0o600))
	t.Setenv("GEMO_NAME", "from-env")

	opts := &demoOptions{}
	ran := false
	a := NewApp("demo", "demo app",
		WithOptions(opts),
		WithDefaultValidArgs(),
		WithRunFunc(func() error {
			ran = true
			return nil
		}),
	)

	cmd := a.Command()
	cmd.SetArgs([]string{"--config", cfg, "--loop.fps", "8"})
	require.NoError(t, cmd.Execute())

	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, 8.0, opts.Loop.FPS, "flags win over the file")
	assert.Equal(t, 250*time.Millisecond, opts.Steer.Pulse, "file wins over defaults")
	assert.Equal(t, "from-env", opts.Name)
	assert.Equal(t, cfg, ConfigFile())
}

func TestDefaultValidArgsRejectsPositional(t *testing.T) {
	a := NewApp("demo", "demo app", WithNoConfig(), WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	cmd := a.Command()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}

func TestIsSecret(t *testing.T) {
	assert.True(t, isSecret("mqtt.password"))
	assert.True(t, isSecret("s3.secret-access-key"))
	assert.False(t, isSecret("loop.fps"))
}
