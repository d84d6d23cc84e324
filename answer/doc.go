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


// Package answer normalizes raw model output into a core.StructuredAnswer.
//
// Processing runs in two stages. Parse looks for a structured_v1 JSON object
// in the raw text and reports whether it found one. When it did not, Extract
// derives a summary and key points from the free text. Process runs both and
// renders the plain answer text:
//
//	res := answer.Process(raw, question)
//	fmt.Println(res.Answer)
//
// Neither stage returns an error. Malformed output always degrades to the
// heuristic result.
package answer
