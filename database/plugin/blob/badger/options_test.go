// Copyright 2025 Blink Labs Software
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

package badger

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBadgerOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	promRegistry := prometheus.NewRegistry()
	testDefs := []struct {
		name   string
		option OptionFunc
		check  func(d *Store) bool
	}{
		{
			name:   "WithDataDir",
			option: WithDataDir("/tmp/test"),
			check:  func(d *Store) bool { return d.dataDir == "/tmp/test" },
		},
		{
			name:   "WithBlockCacheSize",
			option: WithBlockCacheSize(123456789),
			check:  func(d *Store) bool { return d.blockCacheSize == 123456789 },
		},
		{
			name:   "WithIndexCacheSize",
			option: WithIndexCacheSize(987654321),
			check:  func(d *Store) bool { return d.indexCacheSize == 987654321 },
		},
		{
			name:   "WithValueLogFileSize",
			option: WithValueLogFileSize(33554432),
			check:  func(d *Store) bool { return d.valueLogFileSize == 33554432 },
		},
		{
			name:   "WithMemTableSize",
			option: WithMemTableSize(8388608),
			check:  func(d *Store) bool { return d.memTableSize == 8388608 },
		},
		{
			name:   "WithValueThreshold",
			option: WithValueThreshold(1024),
			check:  func(d *Store) bool { return d.valueThreshold == 1024 },
		},
		{
			name:   "WithLogger",
			option: WithLogger(logger),
			check:  func(d *Store) bool { return d.logger == logger },
		},
		{
			name:   "WithPromRegistry",
			option: WithPromRegistry(promRegistry),
			check:  func(d *Store) bool { return d.promRegistry == promRegistry },
		},
		{
			name:   "WithGc",
			option: WithGc(true),
			check:  func(d *Store) bool { return d.gcEnabled },
		},
		{
			name:   "WithGcInterval",
			option: WithGcInterval(30 * time.Second),
			check:  func(d *Store) bool { return d.gcInterval == 30*time.Second },
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			d := &Store{}
			testDef.option(d)
			if !testDef.check(d) {
				t.Errorf("%s did not apply", testDef.name)
			}
		})
	}
}

func TestOptionsCombination(t *testing.T) {
	d := &Store{}
	for _, option := range []OptionFunc{
		WithDataDir("/tmp/combined"),
		WithBlockCacheSize(1000000),
		WithIndexCacheSize(2000000),
		WithGc(true),
		WithGc(false),
	} {
		option(d)
	}
	if d.dataDir != "/tmp/combined" {
		t.Errorf("unexpected dataDir: %s", d.dataDir)
	}
	if d.blockCacheSize != 1000000 {
		t.Errorf("unexpected blockCacheSize: %d", d.blockCacheSize)
	}
	if d.indexCacheSize != 2000000 {
		t.Errorf("unexpected indexCacheSize: %d", d.indexCacheSize)
	}
	if d.gcEnabled {
		t.Error("expected last WithGc(false) to win")
	}
}
