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

// Package sops encrypts and decrypts small binary values with SOPS,
// using master keys configured through the environment. The cloud blob
// stores use it to protect the metadata commit timestamp marker written
// alongside the event log in shared buckets.
package sops

import (
	"errors"
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

// Environment variables naming the master keys used for encryption.
// At least one of the GCP or AWS variables must be set to encrypt.
const (
	EnvGcpKmsResourceId = "CIVET_GCP_KMS_RESOURCE_ID"
	EnvAwsKmsKeyArns    = "CIVET_AWS_KMS_KEY_ARNS"
	EnvAwsKmsProfile    = "CIVET_AWS_KMS_PROFILE"
)

// Decrypt recovers the plaintext from a SOPS-encrypted binary value.
func Decrypt(data []byte) ([]byte, error) {
	return decrypt.Data(data, "binary")
}

// Encrypt wraps a binary value in a SOPS envelope encrypted with the
// master keys named in the environment. Values that already carry a
// SOPS envelope are rejected rather than double encrypted.
func Encrypt(data []byte) ([]byte, error) {
	storeConfig := &config.JSONBinaryStoreConfig{}
	input := jsonstore.NewBinaryStore(storeConfig)
	output := jsonstore.NewBinaryStore(storeConfig)

	branches, err := input.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("error loading data: %w", err)
	}
	if hasSopsEnvelope(branches) {
		return nil, errors.New("already encrypted")
	}

	keyGroups, err := masterKeyGroupsFromEnv()
	if err != nil {
		return nil, err
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}

	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed generating data key: %v", errs)
	}
	if err := scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	}); err != nil {
		return nil, fmt.Errorf("failed encrypt: %w", err)
	}

	encrypted, err := output.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("failed output: %w", err)
	}
	return encrypted, nil
}

// hasSopsEnvelope reports whether the parsed branches already carry
// SOPS metadata.
func hasSopsEnvelope(branches sopsapi.TreeBranches) bool {
	for _, branch := range branches {
		for _, item := range branch {
			if item.Key == "sops" {
				return true
			}
		}
	}
	return false
}

func masterKeyGroupsFromEnv() ([]sopsapi.KeyGroup, error) {
	var keyGroups []sopsapi.KeyGroup
	if group := gcpKeyGroup(); len(group) > 0 {
		keyGroups = append(keyGroups, group)
	}
	if group := awsKeyGroup(); len(group) > 0 {
		keyGroups = append(keyGroups, group)
	}
	if len(keyGroups) == 0 {
		return nil, fmt.Errorf(
			"SOPS requires at least one master key to encrypt: set %s and/or %s",
			EnvGcpKmsResourceId, EnvAwsKmsKeyArns,
		)
	}
	return keyGroups, nil
}

func gcpKeyGroup() sopsapi.KeyGroup {
	rid := os.Getenv(EnvGcpKmsResourceId)
	if rid == "" {
		return nil
	}
	var group sopsapi.KeyGroup
	for _, key := range gcpkms.MasterKeysFromResourceIDString(rid) {
		group = append(group, key)
	}
	return group
}

func awsKeyGroup() sopsapi.KeyGroup {
	arns := os.Getenv(EnvAwsKmsKeyArns)
	if arns == "" {
		return nil
	}
	profile := os.Getenv(EnvAwsKmsProfile)
	var group sopsapi.KeyGroup
	for _, key := range awskms.MasterKeysFromArnString(arns, nil, profile) {
		group = append(group, key)
	}
	return group
}
