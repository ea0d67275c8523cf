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

import "fmt"

var validSeverities = map[string]bool{
	TRACE: true, DEBUG: true, INFO: true, WARNING: true, ERROR: true, OFF: true,
}

func isMultipleOf512(size int64) bool {
	return size > 0 && size%MinStripeSizeFloor == 0
}

func validateSize(size, floor int64) error {
	if !isMultipleOf512(size) {
		return fmt.Errorf("size %d is not a positive multiple of 512", size)
	}
	if size < floor {
		return fmt.Errorf("size %d is below the configured minimum %d", size, floor)
	}
	return nil
}

// Validate hard-validates a rationalized Config, mirroring the teacher's
// cfg.ValidateConfig. It must run after Rationalize.
func Validate(c *Config) error {
	if len(c.Subvolumes) < StripeCountMin {
		return fmt.Errorf("need at least %d subvolumes, got %d", StripeCountMin, len(c.Subvolumes))
	}
	if len(c.Subvolumes) > StripeCountMax {
		return fmt.Errorf("at most %d subvolumes are supported, got %d", StripeCountMax, len(c.Subvolumes))
	}
	seen := make(map[string]bool, len(c.Subvolumes))
	for _, s := range c.Subvolumes {
		if seen[s] {
			return fmt.Errorf("duplicate subvolume path %q", s)
		}
		seen[s] = true
	}

	if !isMultipleOf512(c.MinStripeSize) {
		return fmt.Errorf("min-stripe-size %d is not a positive multiple of 512", c.MinStripeSize)
	}

	if err := validateSize(c.BlockSize.Default, c.MinStripeSize); err != nil {
		return fmt.Errorf("default block-size: %w", err)
	}
	for _, r := range c.BlockSize.Rules {
		if err := validateSize(r.Size, c.MinStripeSize); err != nil {
			return fmt.Errorf("block-size rule %q: %w", r.Pattern, err)
		}
	}

	if !validSeverities[c.Logging.Severity] {
		return fmt.Errorf("invalid log severity %q", c.Logging.Severity)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format %q, must be text or json", c.Logging.Format)
	}

	if c.InstanceName == "" {
		return fmt.Errorf("instance-name must not be empty")
	}

	if c.HealInterval <= 0 {
		return fmt.Errorf("heal-interval must be positive")
	}

	return nil
}
