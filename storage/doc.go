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


// Package storage provides the storage abstraction layer for docqa.
//
// This package defines the interfaces that decouple storage implementation
// from business logic:
//
//   - VectorIndex: similarity search over embedded chunks
//   - SessionRepository: persistence for conversation sessions
//
// # Backends
//
//   - storage/badger: embedded BadgerDB, the default; also stores sessions
//   - storage/pgvector: PostgreSQL with the pgvector extension
//   - storage/qdrant: a Qdrant server over gRPC
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to enforce abstraction:
//
//	index, err := badger.NewVectorIndex(backend)  // returns storage.VectorIndex
//
// Internal constructors (newVectorIndex, etc.) may return concrete types since
// they're only used within the implementation package.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	index, backend, err := badger.NewMemoryIndex()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
