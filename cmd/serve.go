// Copyright 2024 Google Inc. All Rights Reserved.
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

package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stripefs/stripefs/internal/config"
)

// mountFunc performs the actual translator wiring and fuse mount; it is a
// field so tests can substitute a fake that never touches the kernel fuse
// device, mirroring the teacher's own injectable NewRootCmd(runFn) pattern
// in cmd/root_test.go.
type mountFunc func(cfg *config.Config, subvolumes []string, mountPoint string) error

var serveCmd = newServeCmd(mountAndServe)

// newServeCmd builds the "serve" subcommand around mount, parsing args into
// a config.Config the same way regardless of what mount does with it.
func newServeCmd(mount mountFunc) *cobra.Command {
	var crashLogPath string

	c := &cobra.Command{
		Use:   "serve <subvol-path>... <mountpoint>",
		Short: "Mount the striped translator",
		Args:  cobra.MinimumNArgs(3), // at least two subvolumes plus a mountpoint
		RunE: func(cmd *cobra.Command, args []string) error {
			if bindErr != nil {
				return bindErr
			}
			if configFileErr != nil {
				return configFileErr
			}
			if crashLogPath != "" {
				if err := debug.SetCrashOutput(&CrashWriter{fileName: crashLogPath}, debug.CrashOptions{}); err != nil {
					return fmt.Errorf("crash-log: %w", err)
				}
			}

			cfg, subvolumes, mountPoint, err := parseServeArgs(args)
			if err != nil {
				return err
			}
			return mount(cfg, subvolumes, mountPoint)
		},
	}
	c.Flags().StringVar(&crashLogPath, "crash-log", "", "append panic output to this file instead of losing it to a torn-down terminal")
	return c
}

// parseServeArgs splits the positional args into subvolume paths and a
// mountpoint, and unmarshals the bound flags/config-file into a
// config.Config (Subvolumes is then overwritten from the positional args,
// since the subvolume list is a mount argument, not a flag).
func parseServeArgs(args []string) (*config.Config, []string, string, error) {
	mountPoint := args[len(args)-1]
	subvolumes := args[:len(args)-1]

	var cfg config.Config
	if err := viper.Unmarshal(&cfg, viper.DecodeHook(config.DecodeHook())); err != nil {
		return nil, nil, "", fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Subvolumes = subvolumes
	return &cfg, subvolumes, mountPoint, nil
}
