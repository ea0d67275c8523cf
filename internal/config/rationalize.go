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

package config

import "time"

// Rationalize derives fields from other fields before Validate runs,
// mirroring the teacher's cfg.Rationalize two-pass config resolution.
func Rationalize(c *Config) error {
	// Coalesce requires geometry xattrs to be discoverable on create; if
	// xattrs are disabled, force the sparse layout rather than produce
	// files whose layout can't be recovered on a cold lookup.
	if !c.UseXattr {
		c.Coalesce = false
	}

	if c.InstanceName == "" {
		c.InstanceName = DefaultInstanceName
	}

	if c.MinStripeSize == 0 {
		c.MinStripeSize = MinStripeSizeFloor
	}

	if c.HealInterval == 0 {
		c.HealInterval = 30 * time.Second
	}

	if c.BlockSize.Default == 0 {
		c.BlockSize.Default = DefaultStripeSize
	}

	if c.Logging.Severity == "" {
		c.Logging.Severity = INFO
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	return nil
}
