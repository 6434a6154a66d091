/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collation names a rule set for comparing TEXT values.
type Collation string

const (
	CollationDefault         Collation = "default"
	CollationBinary          Collation = "binary"
	CollationCaseInsensitive Collation = "nocase"
	CollationUnicode         Collation = "unicode"
)

// ParseCollation maps a configuration value to a Collation.
func ParseCollation(name string) (Collation, error) {
	switch c := Collation(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return CollationDefault, nil
	case CollationDefault, CollationBinary, CollationCaseInsensitive, CollationUnicode:
		return c, nil
	default:
		return "", fmt.Errorf("unknown collation: %s", name)
	}
}

// Collator provides string comparison based on collation rules.
// It is used for equality, ordering and uniqueness of TEXT values.
type Collator interface {
	// Compare returns -1 if a < b, 0 if a == b, 1 if a > b.
	Compare(a, b string) int

	// Equal returns true if two strings are equal according to collation rules.
	Equal(a, b string) bool

	// Name returns the collation this collator implements.
	Name() Collation
}

func compareBytes(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// DefaultCollator compares strings byte-wise, which for UTF-8 is code point order.
type DefaultCollator struct{}

func (c *DefaultCollator) Compare(a, b string) int { return compareBytes(a, b) }
func (c *DefaultCollator) Equal(a, b string) bool  { return a == b }
func (c *DefaultCollator) Name() Collation         { return CollationDefault }

// BinaryCollator uses strict byte-wise comparison.
type BinaryCollator struct{}

func (c *BinaryCollator) Compare(a, b string) int { return compareBytes(a, b) }
func (c *BinaryCollator) Equal(a, b string) bool  { return a == b }
func (c *BinaryCollator) Name() Collation         { return CollationBinary }

// NocaseCollator uses case-insensitive comparison.
type NocaseCollator struct{}

// Compare implements Collator.
func (c *NocaseCollator) Compare(a, b string) int {
	return compareBytes(strings.ToLower(a), strings.ToLower(b))
}

// Equal implements Collator.
func (c *NocaseCollator) Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (c *NocaseCollator) Name() Collation { return CollationCaseInsensitive }

// UnicodeCollator uses Unicode collation with locale support.
// collate.Collator keeps internal buffers, so calls are serialised.
type UnicodeCollator struct {
	mu       sync.Mutex
	collator *collate.Collator
	locale   string
}

// NewUnicodeCollator creates a new Unicode collator for the given locale.
// Locales use BCP 47 or POSIX style ("de", "en_US"); unknown ones fall back to English.
func NewUnicodeCollator(locale string) *UnicodeCollator {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil || tag == language.Und {
		tag = language.English
	}
	return &UnicodeCollator{
		collator: collate.New(tag, collate.Loose),
		locale:   locale,
	}
}

// Compare implements Collator.
func (c *UnicodeCollator) Compare(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collator.CompareString(a, b)
}

// Equal implements Collator.
func (c *UnicodeCollator) Equal(a, b string) bool {
	return c.Compare(a, b) == 0
}

func (c *UnicodeCollator) Name() Collation { return CollationUnicode }

// Locale returns the locale the collator was built for.
func (c *UnicodeCollator) Locale() string { return c.locale }

// GetCollator returns a Collator for the given collation type and locale.
func GetCollator(collationType Collation, locale string) Collator {
	switch collationType {
	case CollationBinary:
		return &BinaryCollator{}
	case CollationCaseInsensitive:
		return &NocaseCollator{}
	case CollationUnicode:
		return NewUnicodeCollator(locale)
	default:
		return &DefaultCollator{}
	}
}
