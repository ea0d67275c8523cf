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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/stripefs/stripefs/internal/config"
	"github.com/stripefs/stripefs/internal/fuseglue"
	"github.com/stripefs/stripefs/internal/logger"
	"github.com/stripefs/stripefs/internal/metrics"
	"github.com/stripefs/stripefs/internal/xlator"
)

// mountAndServe is the real mountFunc: wire the translator, mount it over
// the kernel fuse device, and block until unmounted or signaled. Kept
// separate from serve.go's flag/arg parsing so tests can substitute a fake
// mountFunc and exercise argument parsing without touching /dev/fuse.
func mountAndServe(cfg *config.Config, subvolumes []string, mountPoint string) error {
	m, err := metrics.NewOTelMetrics()
	if err != nil {
		logger.Warnf("otel metrics unavailable, falling back to no-op: %v", err)
		m = metrics.NewNoopMetrics()
	}

	tr, err := xlator.New(cfg, m)
	if err != nil {
		return fmt.Errorf("wiring translator: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go tr.Run(ctx)

	fsys := fuseglue.New(tr.Engine, uint32(os.Getuid()), uint32(os.Getgid()))
	server := fuseutil.NewFileSystemServer(fsys)

	mountCfg := &fuse.MountConfig{
		FSName:     cfg.InstanceName,
		Subtype:    "stripefs",
		VolumeName: cfg.InstanceName,
	}
	if cfg.Logging.Severity == config.TRACE {
		mountCfg.DebugLogger = log.New(os.Stderr, "fuse_debug: ", log.LstdFlags)
	}

	logger.Infof("mounting %q at %q over %d subvolumes", cfg.InstanceName, mountPoint, len(subvolumes))
	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := fuse.Unmount(mountPoint); err != nil {
			logger.Errorf("unmount %q: %v", mountPoint, err)
		}
	}()

	return mfs.Join(context.Background())
}
