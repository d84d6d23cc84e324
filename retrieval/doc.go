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


// Package retrieval finds relevant chunks and assembles generation prompts.
//
// The Retriever embeds a question and runs a single top-k search against the
// vector index. AssemblePrompt renders the retrieved chunks, recent
// conversation history and the question into a prompt that asks the model
// for a structured_v1 JSON answer.
package retrieval
