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
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/blinklabs-io/civet/database/types"
)

func TestGetEventURLUnavailable(t *testing.T) {
	d := &Store{}
	_, err := d.GetEventURL(1)
	if !errors.Is(err, types.ErrBlobStoreUnavailable) {
		t.Fatalf("Expected ErrBlobStoreUnavailable, got %v", err)
	}
}

func TestGetEventURL(t *testing.T) {
	// Presigning is local SigV4 signing, so a client with static
	// credentials produces URLs without touching the network
	client := s3.New(s3.Options{
		Region: "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider(
			"AKIDEXAMPLE",
			"test-secret",
			"",
		),
	})
	d := &Store{
		client: client,
		bucket: "test-bucket",
		prefix: "ledger/",
	}

	u, err := d.GetEventURL(42)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(u.Host, "test-bucket") {
		t.Errorf("Expected bucket in URL host, got %q", u.Host)
	}
	if u.Query().Get("X-Amz-Signature") == "" {
		t.Error("Expected presigned URL to carry a signature")
	}
	if u.Query().Get("X-Amz-Expires") != "60" {
		t.Errorf(
			"Expected 60 second expiry, got %q",
			u.Query().Get("X-Amz-Expires"),
		)
	}
}
