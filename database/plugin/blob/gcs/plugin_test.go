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

package gcs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blinklabs-io/civet/database/plugin/blob/gcs"
)

func TestNewRequiresGcsPath(t *testing.T) {
	tests := []struct {
		name        string
		dataDir     string
		expectError bool
	}{
		{
			name:    "bucket with scheme",
			dataDir: "gcs://civet-blobs",
		},
		{
			name:        "missing scheme",
			dataDir:     "civet-blobs",
			expectError: true,
		},
		{
			name:        "scheme without bucket",
			dataDir:     "gcs://",
			expectError: true,
		},
		{
			name:        "empty path",
			dataDir:     "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := gcs.New(tt.dataDir, nil, nil)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatal("expected store, got nil")
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		credsPath := filepath.Join(t.TempDir(), "credentials.json")
		if err := os.WriteFile(credsPath, []byte("{}"), 0o600); err != nil {
			t.Fatalf("write credentials file: %v", err)
		}
		if err := gcs.ValidateCredentials(credsPath); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		credsPath := filepath.Join(t.TempDir(), "nonexistent.json")
		err := gcs.ValidateCredentials(credsPath)
		if err == nil {
			t.Fatal("expected error for missing credentials file")
		}
		if !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("unexpected error message: %v", err)
		}
	})

	t.Run("empty path means default credentials", func(t *testing.T) {
		if err := gcs.ValidateCredentials(""); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
