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
	"testing"
)

func TestNewFromCmdlineOptions(t *testing.T) {
	// Save original options
	cmdlineOptionsMutex.Lock()
	originalOptions := cmdlineOptions
	cmdlineOptions.bucket = "test-bucket"
	cmdlineOptions.region = "us-east-1"
	cmdlineOptions.prefix = "test-prefix"
	cmdlineOptionsMutex.Unlock()
	defer func() {
		cmdlineOptionsMutex.Lock()
		cmdlineOptions = originalOptions
		cmdlineOptionsMutex.Unlock()
	}()

	// This should succeed
	p := NewFromCmdlineOptions(nil, nil)
	if p == nil {
		t.Error("Expected plugin to be created, got nil")
	}
}

func TestNewFromCmdlineOptionsDataDir(t *testing.T) {
	// Save original options
	cmdlineOptionsMutex.Lock()
	originalOptions := cmdlineOptions
	cmdlineOptions.bucket = ""
	cmdlineOptions.dataDir = "s3://test-bucket/some/prefix"
	cmdlineOptionsMutex.Unlock()
	defer func() {
		cmdlineOptionsMutex.Lock()
		cmdlineOptions = originalOptions
		cmdlineOptionsMutex.Unlock()
	}()

	p := NewFromCmdlineOptions(nil, nil)
	if p == nil {
		t.Fatal("Expected plugin to be created, got nil")
	}
	store, ok := p.(*Store)
	if !ok {
		t.Fatalf("Expected *Store, got %T", p)
	}
	if store.bucket != "test-bucket" {
		t.Errorf("Expected bucket 'test-bucket', got '%s'", store.bucket)
	}
	if store.prefix != "some/prefix/" {
		t.Errorf("Expected prefix 'some/prefix/', got '%s'", store.prefix)
	}
}

func TestParseS3Path(t *testing.T) {
	testDefs := []struct {
		path       string
		bucket     string
		prefix     string
		expectsErr bool
	}{
		{path: "s3://my-bucket", bucket: "my-bucket"},
		{path: "s3://my-bucket/data", bucket: "my-bucket", prefix: "data/"},
		{path: "s3://my-bucket/data/", bucket: "my-bucket", prefix: "data/"},
		{path: "s3://", expectsErr: true},
		{path: "/var/lib/data", expectsErr: true},
		{path: "", expectsErr: true},
	}
	for _, testDef := range testDefs {
		bucket, prefix, err := parseS3Path(testDef.path)
		if testDef.expectsErr {
			if err == nil {
				t.Errorf("Expected error for path %q, got none", testDef.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for path %q: %v", testDef.path, err)
			continue
		}
		if bucket != testDef.bucket {
			t.Errorf(
				"Expected bucket %q for path %q, got %q",
				testDef.bucket,
				testDef.path,
				bucket,
			)
		}
		if prefix != testDef.prefix {
			t.Errorf(
				"Expected prefix %q for path %q, got %q",
				testDef.prefix,
				testDef.path,
				prefix,
			)
		}
	}
}
