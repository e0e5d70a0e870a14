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

package gcs

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestGCSOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	promRegistry := prometheus.NewRegistry()
	testDefs := []struct {
		name   string
		option OptionFunc
		check  func(b *Store) bool
	}{
		{
			name:   "WithLogger",
			option: WithLogger(logger),
			check: func(b *Store) bool {
				return b.logger.logger == logger
			},
		},
		{
			name:   "WithPromRegistry",
			option: WithPromRegistry(promRegistry),
			check: func(b *Store) bool {
				return b.promRegistry == promRegistry
			},
		},
		{
			name:   "WithBucket",
			option: WithBucket("test-bucket"),
			check: func(b *Store) bool {
				return b.bucketName == "test-bucket"
			},
		},
		{
			name:   "WithCredentialsFile",
			option: WithCredentialsFile("/etc/gcs/creds.json"),
			check: func(b *Store) bool {
				return b.credentialsFile == "/etc/gcs/creds.json"
			},
		},
		{
			name:   "WithTimeout",
			option: WithTimeout(15 * time.Second),
			check: func(b *Store) bool {
				return b.timeout == 15*time.Second
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			b := &Store{}
			testDef.option(b)
			if !testDef.check(b) {
				t.Errorf("%s did not apply", testDef.name)
			}
		})
	}
}
