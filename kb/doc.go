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

// Package kb maintains the knowledge base: the chunked, embedded form of
// stored document versions that retrieval queries run against.
//
// The chunker splits a stored version into retrieval-sized units by
// semantic field group, each carrying a source field path back-reference.
// The index embeds those units and swaps them into the chunk store
// atomically per document, always working from the latest stored version.
package kb
