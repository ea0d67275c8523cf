// Copyright 2024 Google LLC
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
	"fmt"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// ByteSize is the datatype for any field accepting a human byte-size literal
// ("128KiB", "4Mi", or a bare integer of bytes).
type ByteSize int64

func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := parseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(v)
	return nil
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(b), 10)), nil
}

func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	mult := int64(1)
	lower := strings.ToLower(s)
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"kib", 1024}, {"mib", 1024 * 1024}, {"gib", 1024 * 1024 * 1024},
		{"ki", 1024}, {"mi", 1024 * 1024}, {"gi", 1024 * 1024 * 1024},
		{"kb", 1000}, {"mb", 1000 * 1000}, {"gb", 1000 * 1000 * 1000},
		{"k", 1024}, {"m", 1024 * 1024}, {"g", 1024 * 1024 * 1024},
	}
	numeric := s
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, suf.suffix) {
			mult = suf.mult
			numeric = s[:len(s)-len(suf.suffix)]
			break
		}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(numeric), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return n * mult, nil
}

// PatternRule is one entry of the block-size resolver (C6): a glob matched
// against the logical path at create time, with the stripe size to use when
// it is the first matching entry in the ordered list.
type PatternRule struct {
	Pattern string
	Size    int64
	matcher glob.Glob
}

// Match reports whether path matches this rule's glob.
func (r *PatternRule) Match(path string) bool {
	if r.matcher == nil {
		r.matcher = glob.MustCompile(r.Pattern)
	}
	return r.matcher.Match(path)
}

// PatternRuleList is the datatype for the `block-size` configuration
// surface (spec §6.4, §3.5): either a bare size (the default, no rules) or a
// comma-separated list of `glob:size` entries.
type PatternRuleList struct {
	Default int64
	Rules   []PatternRule
}

func (l *PatternRuleList) UnmarshalText(text []byte) error {
	s := string(text)
	parts := strings.Split(s, ",")
	var rules []PatternRule
	var def int64 = -1

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.LastIndex(part, ":")
		if idx < 0 {
			size, err := parseByteSize(part)
			if err != nil {
				return fmt.Errorf("invalid block-size entry %q: %w", part, err)
			}
			def = size
			continue
		}
		pattern := part[:idx]
		size, err := parseByteSize(part[idx+1:])
		if err != nil {
			return fmt.Errorf("invalid block-size entry %q: %w", part, err)
		}
		rules = append(rules, PatternRule{Pattern: pattern, Size: size})
	}

	if def == -1 {
		def = DefaultStripeSize
	}
	l.Default = def
	l.Rules = rules
	return nil
}

func (l PatternRuleList) MarshalText() ([]byte, error) {
	var b strings.Builder
	for i, r := range l.Rules {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%d", r.Pattern, r.Size)
	}
	if b.Len() > 0 {
		b.WriteByte(',')
	}
	fmt.Fprintf(&b, "%d", l.Default)
	return []byte(b.String()), nil
}

// Resolve walks the rule list in order and returns the first matching
// entry's size, falling back to the configured default (spec §4.6).
func (l *PatternRuleList) Resolve(logicalPath string) int64 {
	for i := range l.Rules {
		if l.Rules[i].Match(logicalPath) {
			return l.Rules[i].Size
		}
	}
	return l.Default
}
