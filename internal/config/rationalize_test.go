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

func TestRationalize_ForcesSparseWhenXattrDisabled(t *testing.T) {
	c := &Config{UseXattr: false, Coalesce: true}

	err := Rationalize(c)

	assert.NoError(t, err)
	assert.False(t, c.Coalesce)
}

func TestRationalize_LeavesCoalesceWhenXattrEnabled(t *testing.T) {
	c := &Config{UseXattr: true, Coalesce: true}

	err := Rationalize(c)

	assert.NoError(t, err)
	assert.True(t, c.Coalesce)
}

func TestRationalize_FillsDefaults(t *testing.T) {
	c := &Config{}

	err := Rationalize(c)

	assert.NoError(t, err)
	assert.Equal(t, DefaultInstanceName, c.InstanceName)
	assert.Equal(t, MinStripeSizeFloor, c.MinStripeSize)
	assert.Equal(t, int64(DefaultStripeSize), c.BlockSize.Default)
	assert.Equal(t, INFO, c.Logging.Severity)
	assert.Equal(t, "text", c.Logging.Format)
	assert.NotZero(t, c.HealInterval)
}
