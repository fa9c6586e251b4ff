// Copyright 2025 Poiesic Systems
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

package storage

import (
	"fmt"

	"github.com/poiesic/utilidoc/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalStoredVersion serializes a StoredVersion to bytes.
func MarshalStoredVersion(version *core.StoredVersion) []byte {
	buf := make([]byte, core.StoredVersionMUS.Size(*version))
	core.StoredVersionMUS.Marshal(*version, buf)
	return buf
}

// UnmarshalStoredVersion deserializes a StoredVersion from bytes.
func UnmarshalStoredVersion(data []byte) (*core.StoredVersion, error) {
	version, _, err := core.StoredVersionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &version, nil
}

// MarshalIndexChunk serializes an IndexChunk to bytes.
func MarshalIndexChunk(chunk *core.IndexChunk) []byte {
	buf := make([]byte, core.IndexChunkMUS.Size(*chunk))
	core.IndexChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalIndexChunk deserializes an IndexChunk from bytes.
func UnmarshalIndexChunk(data []byte) (*core.IndexChunk, error) {
	chunk, _, err := core.IndexChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}
