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
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripefs/stripefs/internal/config"
)

type capturedCall struct {
	cfg        *config.Config
	subvolumes []string
	mountPoint string
}

// newTestServeTree builds a throwaway parent command carrying the same
// persistent flags as the real rootCmd, with serve as its only child,
// so tests exercise the real "stripectl serve ..." flag inheritance
// without touching the package-level rootCmd/viper globals (mirroring the
// teacher's per-test NewRootCmd construction in cmd/flag_parsing_test.go).
func newTestServeTree(t *testing.T, mount mountFunc) (*cobra.Command, *capturedCall) {
	t.Helper()
	viper.Reset()

	parent := &cobra.Command{Use: "stripectl"}
	config.BindFlags(parent.PersistentFlags())
	require.NoError(t, viper.BindPFlags(parent.PersistentFlags()))

	got := &capturedCall{}
	serve := newServeCmd(func(cfg *config.Config, subvolumes []string, mountPoint string) error {
		got.cfg = cfg
		got.subvolumes = subvolumes
		got.mountPoint = mountPoint
		if mount != nil {
			return mount(cfg, subvolumes, mountPoint)
		}
		return nil
	})
	serve.SilenceUsage = true
	serve.SilenceErrors = true
	parent.AddCommand(serve)
	parent.SilenceUsage = true
	parent.SilenceErrors = true
	return parent, got
}

func TestServeCmd_ParsesSubvolumesAndMountpoint(t *testing.T) {
	parent, got := newTestServeTree(t, nil)
	parent.SetArgs([]string{"serve", "/data/a", "/data/b", "/data/c", "/mnt/stripe"})

	require.NoError(t, parent.Execute())
	assert.Equal(t, []string{"/data/a", "/data/b", "/data/c"}, got.subvolumes)
	assert.Equal(t, "/mnt/stripe", got.mountPoint)
	assert.Equal(t, []string{"/data/a", "/data/b", "/data/c"}, got.cfg.Subvolumes)
}

func TestServeCmd_RejectsFewerThanThreeArgs(t *testing.T) {
	parent, _ := newTestServeTree(t, nil)
	parent.SetArgs([]string{"serve", "/data/a", "/mnt/stripe"})

	assert.Error(t, parent.Execute())
}

func TestServeCmd_FlagsFlowIntoConfig(t *testing.T) {
	parent, got := newTestServeTree(t, nil)
	parent.SetArgs([]string{
		"serve",
		"--block-size", "256KiB",
		"--coalesce=false",
		"--use-xattr=false",
		"--instance-name", "test-instance",
		"--heal-interval", "90s",
		"/data/a", "/data/b", "/mnt/stripe",
	})

	require.NoError(t, parent.Execute())
	require.NotNil(t, got.cfg)
	assert.False(t, got.cfg.Coalesce)
	assert.False(t, got.cfg.UseXattr)
	assert.Equal(t, "test-instance", got.cfg.InstanceName)
	assert.Equal(t, 90*time.Second, got.cfg.HealInterval)
}

func TestServeCmd_SurfacesMountError(t *testing.T) {
	wantErr := assert.AnError
	parent, _ := newTestServeTree(t, func(cfg *config.Config, subvolumes []string, mountPoint string) error {
		return wantErr
	})
	parent.SetArgs([]string{"serve", "/data/a", "/data/b", "/mnt/stripe"})

	err := parent.Execute()
	assert.ErrorIs(t, err, wantErr)
}

func TestServeCmd_CrashLogFlagAcceptsPath(t *testing.T) {
	parent, got := newTestServeTree(t, nil)
	dir := t.TempDir()
	parent.SetArgs([]string{"serve", "--crash-log", dir + "/crash.log", "/data/a", "/data/b", "/mnt/stripe"})

	require.NoError(t, parent.Execute())
	assert.NotNil(t, got.cfg)
}
