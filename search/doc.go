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


// Package search retrieves the transcript chunks most relevant to a question.
//
// The Retriever embeds the question, runs a k-NN query scoped to one video,
// drops hits below a similarity floor and lets chunks that contain every
// query word (after stop-word filtering) outrank close semantic neighbours.
// A Monitor can observe each step.
package search
