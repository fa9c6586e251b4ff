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

// Package ingestion orchestrates document processing.
//
// Each document runs a one-way state machine:
//
//	received -> validated -> qcChecked -> stored -> indexed
//
// with rejected reachable from received on schema failure. There are no
// retries within the state machine itself; transient embedding failures
// are retried with bounded backoff at the indexing boundary, and a
// document left stored-but-unindexed is recovered by Reindex on a later
// run. Batches fan out over a worker pool with per-document failure
// isolation.
package ingestion
