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

package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/gemo-rc/gemo/internal/pilot"
	"github.com/gemo-rc/gemo/internal/pilot/actuator"
	"github.com/gemo-rc/gemo/pkg/app"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

// PilotOptions is the full configuration surface of gemo-pilot.
type PilotOptions struct {
	VehicleID string `json:"vehicle-id" mapstructure:"vehicle-id"`

	DecisionOptions *options.DecisionOptions `json:"decision" mapstructure:"decision"`
	DriveOptions    *options.DriveOptions    `json:"drive" mapstructure:"drive"`
	SteerOptions    *options.SteerOptions    `json:"steer" mapstructure:"steer"`
	HALOptions      *options.HALOptions      `json:"hal" mapstructure:"hal"`
	LoopOptions     *options.LoopOptions     `json:"loop" mapstructure:"loop"`
	FrameOptions    *options.FrameOptions    `json:"frames" mapstructure:"frames"`
	JournalOptions  *options.JournalOptions  `json:"journal" mapstructure:"journal"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	GrpcOptions     *options.GrpcOptions     `json:"grpc" mapstructure:"grpc"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*PilotOptions)(nil)

func NewPilotOptions() *PilotOptions {
	return &PilotOptions{
		DecisionOptions: options.NewDecisionOptions(),
		DriveOptions:    options.NewDriveOptions(),
		SteerOptions:    options.NewSteerOptions(),
		HALOptions:      options.NewHALOptions(),
		LoopOptions:     options.NewLoopOptions(),
		FrameOptions:    options.NewFrameOptions(),
		JournalOptions:  options.NewJournalOptions(),
		S3Options:       options.NewS3Options(),
		MqttOptions:     options.NewMqttOptions(),
		HttpOptions:     options.NewHttpOptions(),
		GrpcOptions:     options.NewGrpcOptions(),
		Log:             log.NewOptions(),
	}
}

func (o *PilotOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fss.FlagSet("pilot").StringVar(&o.VehicleID, "vehicle-id", o.VehicleID,
		"Vehicle identity. Discovered from GEMO_VEHICLE_ID, /etc/gemo/vehicle-id or the hostname when empty.")
	o.DecisionOptions.AddFlags(fss.FlagSet("decision"))
	o.DriveOptions.AddFlags(fss.FlagSet("drive"))
	o.SteerOptions.AddFlags(fss.FlagSet("steer"))
	o.HALOptions.AddFlags(fss.FlagSet("hal"))
	o.LoopOptions.AddFlags(fss.FlagSet("loop"))
	o.FrameOptions.AddFlags(fss.FlagSet("frames"))
	o.JournalOptions.AddFlags(fss.FlagSet("journal"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *PilotOptions) Complete() error {
	return nil
}

func (o *PilotOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.DecisionOptions.Validate()...)
	errs = append(errs, o.DriveOptions.Validate()...)
	errs = append(errs, o.SteerOptions.Validate()...)
	errs = append(errs, o.HALOptions.Validate()...)
	errs = append(errs, o.LoopOptions.Validate()...)
	errs = append(errs, o.FrameOptions.Validate()...)
	errs = append(errs, o.JournalOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// Tuning returns the actuation parameters that may change while running.
func (o *PilotOptions) Tuning() actuator.Tuning {
	return actuator.TuningFromOptions(o.DriveOptions, o.SteerOptions)
}

func (o *PilotOptions) Config() (*pilot.Config, error) {
	return &pilot.Config{
		VehicleID:       o.VehicleID,
		DecisionOptions: o.DecisionOptions,
		DriveOptions:    o.DriveOptions,
		SteerOptions:    o.SteerOptions,
		HALOptions:      o.HALOptions,
		LoopOptions:     o.LoopOptions,
		FrameOptions:    o.FrameOptions,
		JournalOptions:  o.JournalOptions,
		S3Options:       o.S3Options,
		MqttOptions:     o.MqttOptions,
		HttpOptions:     o.HttpOptions,
		GrpcOptions:     o.GrpcOptions,
	}, nil
}
