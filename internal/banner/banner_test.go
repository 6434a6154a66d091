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

package banner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"regretdb/internal/config"
)

func TestPrintPlain(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, false)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, Logo()))
	assert.Contains(t, out, ":: RegretDB ::")
	assert.Contains(t, out, "(v"+Version+")")
	assert.NotContains(t, out, "\033[")
}

func TestPrintColor(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, true)
	assert.Contains(t, buf.String(), AnsiRed)
	assert.Contains(t, buf.String(), AnsiReset)
}

func TestPrintConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   []string
	}{
		{"defaults", func(c *config.Config) {}, []string{
			"Config: defaults + environment",
			"Autosave:   off",
			"Encryption: off",
			"Collation:  default",
			"Max rows:   1000",
			"Cache:      256 results",
		}},
		{"file and encryption", func(c *config.Config) {
			c.ConfigFile = "/etc/regretdb/regretdb.conf"
			c.EncryptionEnabled = true
			c.Autosave = true
		}, []string{
			"Config: /etc/regretdb/regretdb.conf",
			"Autosave:   on",
			"Encryption: AES-256-GCM",
		}},
		{"unicode collation", func(c *config.Config) {
			c.Collation = "unicode"
			c.Locale = "de"
			c.MaxDisplayRows = 0
			c.SnapshotPath = ""
		}, []string{
			"Collation:  unicode (de)",
			"Max rows:   unlimited",
			"Snapshot:   (memory only)",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			var buf bytes.Buffer
			PrintConfig(&buf, cfg, false)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}
