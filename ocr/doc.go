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

// Package ocr extracts text from PDF files through an ordered chain of
// providers: the Mistral OCR API, OpenAI and Gemini vision models
// transcribing one rendered page image per request, and local extraction of
// the embedded text layer. Locally, pages with too little text are rendered
// with poppler's pdftoppm and run through tesseract when built with the ocr
// tag.
//
// The first provider returning non-empty text wins. Providers whose
// credentials are missing are left out of the chain.
package ocr
