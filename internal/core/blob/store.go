// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package blob defines the object store capability consumed by the thumbnail
// pipeline: read a source by reference, write a derivative by name. Cloud
// backed implementations live in the cloud package; MemoryStore serves tests
// and local runs.
package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/reference"
)

// ErrNotFound is returned by Read when the referenced object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store reads source objects and writes thumbnails. Write must overwrite an
// existing object of the same name.
type Store interface {
	Read(ctx context.Context, ref model.SourceReference) (io.ReadCloser, error)
	Write(ctx context.Context, container, name string, data []byte, contentType string) error
}

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore is a concurrency safe, in-process Store keyed by container and
// object name. Sources are resolved with reference.Locate.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]map[string]Object
	writes  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]map[string]Object)}
}

// Put seeds an object, typically a source image in tests.
func (m *MemoryStore) Put(container, name string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(container, name, data, contentType)
}

func (m *MemoryStore) put(container, name string, data []byte, contentType string) {
	c, ok := m.objects[container]
	if !ok {
		c = make(map[string]Object)
		m.objects[container] = c
	}
	c[name] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
}

func (m *MemoryStore) Read(ctx context.Context, ref model.SourceReference) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := reference.Locate(ref.URL)
	if err != nil {
		return nil, err
	}
	obj, ok := m.Get(loc.Container, loc.Object)
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

func (m *MemoryStore) Write(ctx context.Context, container, name string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(container, name, data, contentType)
	m.writes++
	return nil
}

// Get returns a copy of the stored object.
func (m *MemoryStore) Get(container, name string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[container][name]
	if !ok {
		return Object{}, false
	}
	return Object{Data: append([]byte(nil), obj.Data...), ContentType: obj.ContentType}, true
}

// Names lists the object names of a container in lexical order.
func (m *MemoryStore) Names(container string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objects[container]))
	for name := range m.objects[container] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Writes counts the successful Write calls.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
