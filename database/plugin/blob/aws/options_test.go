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

package aws

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestS3Options(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	promRegistry := prometheus.NewRegistry()
	testDefs := []struct {
		name   string
		option OptionFunc
		check  func(d *Store) bool
	}{
		{
			name:   "WithLogger",
			option: WithLogger(logger),
			check:  func(d *Store) bool { return d.logger != nil },
		},
		{
			name:   "WithPromRegistry",
			option: WithPromRegistry(promRegistry),
			check:  func(d *Store) bool { return d.promRegistry == promRegistry },
		},
		{
			name:   "WithBucket",
			option: WithBucket("test-bucket"),
			check:  func(d *Store) bool { return d.bucket == "test-bucket" },
		},
		{
			name:   "WithRegion",
			option: WithRegion("us-west-2"),
			check:  func(d *Store) bool { return d.region == "us-west-2" },
		},
		{
			name:   "WithPrefix",
			option: WithPrefix("ledger/"),
			check:  func(d *Store) bool { return d.prefix == "ledger/" },
		},
		{
			name:   "WithTimeout",
			option: WithTimeout(15 * time.Second),
			check:  func(d *Store) bool { return d.timeout == 15*time.Second },
		},
		{
			name:   "WithEndpoint",
			option: WithEndpoint("http://localhost:9000"),
			check:  func(d *Store) bool { return d.endpoint == "http://localhost:9000" },
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
