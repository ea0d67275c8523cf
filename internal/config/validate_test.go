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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Subvolumes:    []string{"/data/brick0", "/data/brick1"},
		BlockSize:     PatternRuleList{Default: 128 * 1024},
		MinStripeSize: 512,
		InstanceName:  "stripe",
		HealInterval:  1,
		Logging:       LoggingConfig{Severity: INFO, Format: "text"},
	}
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{
			name:    "too few subvolumes",
			mutate:  func(c *Config) { c.Subvolumes = []string{"/data/brick0"} },
			wantErr: true,
		},
		{
			name: "too many subvolumes",
			mutate: func(c *Config) {
				c.Subvolumes = make([]string, StripeCountMax+1)
				for i := range c.Subvolumes {
					c.Subvolumes[i] = "/brick"
				}
			},
			wantErr: true,
		},
		{
			name:    "duplicate subvolume",
			mutate:  func(c *Config) { c.Subvolumes = []string{"/data/brick0", "/data/brick0"} },
			wantErr: true,
		},
		{
			name:    "min-stripe-size not multiple of 512",
			mutate:  func(c *Config) { c.MinStripeSize = 500 },
			wantErr: true,
		},
		{
			name:    "block size below minimum",
			mutate:  func(c *Config) { c.BlockSize.Default = 256 },
			wantErr: true,
		},
		{
			name:    "block size rule below minimum",
			mutate:  func(c *Config) { c.BlockSize.Rules = []PatternRule{{Pattern: "*.log", Size: 256}} },
			wantErr: true,
		},
		{
			name:    "invalid severity",
			mutate:  func(c *Config) { c.Logging.Severity = "LOUD" },
			wantErr: true,
		},
		{
			name:    "invalid format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "empty instance name",
			mutate:  func(c *Config) { c.InstanceName = "" },
			wantErr: true,
		},
		{
			name:    "zero heal interval",
			mutate:  func(c *Config) { c.HealInterval = 0 },
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := Validate(c)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
