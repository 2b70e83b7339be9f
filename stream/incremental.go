// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

// IncrementalReader fills a fixed destination across multiple
// non-blocking reads, one call at a time.
type IncrementalReader struct {
	left []byte
}

// NewIncrementalReader returns a reader that fills dst.
func NewIncrementalReader(dst []byte) *IncrementalReader {
	return &IncrementalReader{left: dst}
}

// Reset retargets the reader at dst.
func (r *IncrementalReader) Reset(dst []byte) { r.left = dst }

// Step performs one non-blocking read. It reports true once the
// destination is completely filled; false with a nil error means the
// transfer should continue on a later call.
func (r *IncrementalReader) Step(in *InputStream) (bool, error) {
	n, err := in.Read(r.left, NonBlocking)
	if err != nil {
		return false, err
	}
	r.left = r.left[n:]
	return len(r.left) == 0, nil
}

// IncrementalWriter drains a fixed source across multiple non-blocking
// writes, one call at a time.
type IncrementalWriter struct {
	left []byte
}

// NewIncrementalWriter returns a writer that drains src.
func NewIncrementalWriter(src []byte) *IncrementalWriter {
	return &IncrementalWriter{left: src}
}

// Reset retargets the writer at src.
func (w *IncrementalWriter) Reset(src []byte) { w.left = src }

// Step performs one non-blocking write. It reports true once the source
// is completely written.
func (w *IncrementalWriter) Step(out *OutputStream) (bool, error) {
	n, err := out.Write(w.left, NonBlocking)
	if err != nil {
		return false, err
	}
	w.left = w.left[n:]
	return len(w.left) == 0, nil
}
