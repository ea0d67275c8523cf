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

const (
	// Logging-severity constants.

	TRACE   string = "TRACE"
	DEBUG   string = "DEBUG"
	INFO    string = "INFO"
	WARNING string = "WARNING"
	ERROR   string = "ERROR"
	OFF     string = "OFF"
)

const (
	// MinStripeSizeFloor is the absolute floor below which no configured or
	// pattern-resolved stripe size may fall, regardless of MinStripeSize.
	MinStripeSizeFloor int64 = 512

	// DefaultStripeSize is used when no pattern rule matches and no
	// default-size flag was given.
	DefaultStripeSize int64 = 128 * 1024

	// DefaultInstanceName seeds the trusted.<name>.* xattr namespace when
	// the operator did not supply one.
	DefaultInstanceName = "stripe"

	// DefaultHealInterval is the self-heal sweep period when unset.
	DefaultHealInterval = "30s"

	// StripeCountMin and StripeCountMax bound the number of participating
	// subvolumes for any single file's geometry (spec §3.1).
	StripeCountMin = 2
	StripeCountMax = 256
)
