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

	"github.com/fsnotify/fsnotify"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/gemo-rc/gemo/cmd/gemo-pilot/app/options"
	"github.com/gemo-rc/gemo/internal/pilot"
	"github.com/gemo-rc/gemo/pkg/app"
	"github.com/gemo-rc/gemo/pkg/log"
)

const (
	commandName = "gemo-pilot"
	commandDesc = `gemo-pilot drives an RC car from its camera. Every cycle it captures a
frame, asks Gemini for a drive/steer decision through a function call and
applies it to the motors. Any failure on the way stops the car.`
)

func NewApp() *app.App {
	opts := options.NewPilotOptions()
	application := app.NewApp(
		commandName,
		"Launch the gemo RC vehicle pilot",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.PilotOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer func() { _ = log.Sync() }()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		p, err := cfg.NewPilot(ctx)
		if err != nil {
			return fmt.Errorf("failed to create pilot: %w", err)
		}

		watchTuning(p)
		return p.Run(ctx)
	}
}

// watchTuning re-reads the config file on change and retunes the actuators.
// Only drive speed and steering pulse parameters are applied while running.
func watchTuning(p *pilot.Pilot) {
	err := app.WatchConfig(func(e fsnotify.Event) {
		next := options.NewPilotOptions()
		if err := app.Decode(next); err != nil {
			log.Error(err, "Ignoring unreadable config change", "file", e.Name)
			return
		}
		errs := append(next.DriveOptions.Validate(), next.SteerOptions.Validate()...)
		if len(errs) > 0 {
			log.Error(errors.Join(errs...), "Ignoring invalid config change", "file", e.Name)
			return
		}
		p.Tune(next.Tuning())
	})
	if errors.Is(err, app.ErrNoConfigFile) {
		return
	}
	if err != nil {
		log.Warn("Config hot reload disabled", "error", err)
	}
}
