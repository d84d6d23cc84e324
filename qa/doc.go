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


// Package qa answers questions against the indexed documents.
//
// A query records the question in its session, retrieves the most relevant
// chunks, renders a prompt with the recent conversation, generates an answer
// and post-processes it into a structured result before recording the
// answer in the session. Query never returns an error; failures are
// reported on the Result.
package qa
