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

// Package config is the ambient configuration surface (C6's static
// configuration half, plus the logging/CLI rationalization the rest of the
// engine depends on). It mirrors the teacher's two-pass config resolution:
// Rationalize derives fields from other fields, Validate hard-fails on
// unusable values.
package config

import (
	"time"

	"github.com/spf13/pflag"
)

// LoggingConfig controls the format and verbosity of internal/logger's
// package-level logger.
type LoggingConfig struct {
	Severity string `mapstructure:"severity"`
	Format   string `mapstructure:"format"`
	FilePath string `mapstructure:"file-path"`
}

// Config is the fully resolved configuration for a translator instance.
type Config struct {
	// Subvolumes is the ordered list of backend root paths; position i is
	// the owner of stripe index i (spec §3.1).
	Subvolumes []string `mapstructure:"subvolumes"`

	// BlockSize is the block-size resolver surface (spec §6.4, §3.5): a
	// bare size or a comma-separated list of glob:size entries.
	BlockSize PatternRuleList `mapstructure:"block-size"`

	// MinStripeSize is the floor below which a parsed stripe size is
	// rejected by Validate; must itself be a multiple of 512.
	MinStripeSize int64 `mapstructure:"min-stripe-size"`

	// Coalesce selects the on-disk layout for newly created files
	// (spec §6.1, §6.4).
	Coalesce bool `mapstructure:"coalesce"`

	// UseXattr disables sending geometry xattrs on create when false, for
	// compatibility with subvolumes that reject unknown xattrs.
	UseXattr bool `mapstructure:"use-xattr"`

	// InstanceName seeds the trusted.<name>.* xattr namespace (spec §6.2)
	// and the pathinfo string (spec §6.3).
	InstanceName string `mapstructure:"instance-name"`

	// HealInterval is the self-heal sweep period (§4.5).
	HealInterval time.Duration `mapstructure:"heal-interval"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// BindFlags defines one pflag flag per Config field except Subvolumes,
// mirroring the teacher's cfg.BindFlags. The caller binds the flag set into
// viper; the log-* flags must also be bound to the logging.* keys, since
// their names differ from LoggingConfig's keys.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("block-size", "128KiB", "default stripe size, or a comma-separated list of glob:size entries")
	fs.Int64("min-stripe-size", MinStripeSizeFloor, "floor below which a stripe size is rejected")
	fs.Bool("coalesce", true, "use the coalesced on-disk layout for new files")
	fs.Bool("use-xattr", true, "send geometry xattrs on create")
	fs.String("instance-name", DefaultInstanceName, "translator instance name, used in the trusted.<name>.* xattr namespace")
	fs.Duration("heal-interval", 30*time.Second, "self-heal sweep period")
	fs.String("log-severity", INFO, "logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF")
	fs.String("log-format", "text", "logging format: text or json")
	fs.String("log-file", "", "log file path; empty means stderr")
}
