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

// Package cmd is stripectl's command surface, grounded on the teacher's
// own cobra/viper root command: a persistent --config-file flag, pflag
// bindings for everything else, and a two-pass viper unmarshal into
// internal/config.Config.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stripefs/stripefs/internal/config"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
)

var rootCmd = &cobra.Command{
	Use:   "stripectl",
	Short: "Mount a striped translator over N local subvolumes",
	Long: `stripectl mounts a FUSE file system that fans each logical file out
across a fixed set of local subvolumes, N-way striped by byte offset,
modeled on GlusterFS's stripe translator.`,
}

// Execute runs the root command, printing any error to stderr and exiting
// non-zero (teacher's Execute shape in cmd/root.go).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a YAML config file")
	config.BindFlags(rootCmd.PersistentFlags())
	bindErr = viper.BindPFlags(rootCmd.PersistentFlags())
	for key, flag := range map[string]string{
		"logging.severity":  "log-severity",
		"logging.format":    "log-format",
		"logging.file-path": "log-file",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil && bindErr == nil {
			bindErr = err
		}
	}
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads cfgFile into viper if given, mirroring the teacher's
// initConfig two-path shape (flags only, or flags plus a YAML overlay).
func initConfig() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file %q: %w", cfgFile, err)
	}
}
