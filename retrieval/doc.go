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

// Package retrieval answers natural-language questions over the indexed
// knowledge base.
//
// The engine embeds a query, retrieves the most similar chunks, and hands
// the grounded context to the synthesis service with instructions to cite
// only supplied material. When retrieval yields nothing, the engine
// returns a fixed no-grounding answer instead of synthesizing from empty
// context, which would invite hallucination.
package retrieval
