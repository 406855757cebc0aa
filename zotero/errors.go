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

package zotero

import "errors"

var (
	// ErrInvalidExport indicates JSON that is neither an item array nor an
	// object with an "items" array.
	ErrInvalidExport = errors.New("invalid zotero export: expected an array or an object with an items array")

	// ErrNoItems indicates an export without any item.
	ErrNoItems = errors.New("no items found in zotero export")

	// ErrAttachmentNotFound indicates that no file matched an attachment path.
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrExtractorRequired is returned when a Loader has no text extractor.
	ErrExtractorRequired = errors.New("text extractor is required")
)
