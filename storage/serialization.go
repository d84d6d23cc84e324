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
	"encoding/json"
	"fmt"

	"github.com/poiesic/docqa/core"
)

// MarshalIndexRecord serializes an IndexRecord to bytes.
func MarshalIndexRecord(record *core.IndexRecord) []byte {
	buf := make([]byte, core.IndexRecordMUS.Size(*record))
	core.IndexRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalIndexRecord deserializes an IndexRecord from bytes.
func UnmarshalIndexRecord(data []byte) (*core.IndexRecord, error) {
	record, _, err := core.IndexRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalSessionRecord serializes a SessionRecord to bytes.
func MarshalSessionRecord(record *core.SessionRecord) []byte {
	buf := make([]byte, core.SessionRecordMUS.Size(*record))
	core.SessionRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalSessionRecord deserializes a SessionRecord from bytes.
func UnmarshalSessionRecord(data []byte) (*core.SessionRecord, error) {
	record, _, err := core.SessionRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// EncodeMetadata renders metadata as JSON text. A nil map encodes as "{}".
func EncodeMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	bs, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return string(bs), nil
}

// DecodeMetadata parses JSON text produced by EncodeMetadata.
// Numbers decode as float64.
func DecodeMetadata(text string) (map[string]any, error) {
	metadata := map[string]any{}
	if text == "" {
		return metadata, nil
	}
	if err := json.Unmarshal([]byte(text), &metadata); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return metadata, nil
}

// Matches reports whether metadata satisfies every filter entry.
func (f Filter) Matches(metadata map[string]any) bool {
	for k, want := range f {
		got, ok := metadata[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// ResultFromRecord converts a stored entry into a search result.
// The distance metadata is 1 - score.
func ResultFromRecord(id, text string, metadata map[string]any, score float32) core.SearchResult {
	source, _ := metadata["source"].(string)
	return core.SearchResult{
		Document: core.Document{
			ID:       id,
			Content:  text,
			Source:   source,
			Kind:     core.ParseKind(fmt.Sprint(metadata["file_type"])),
			Metadata: metadata,
		},
		Score:    score,
		Metadata: map[string]any{"distance": 1 - score},
	}
}
