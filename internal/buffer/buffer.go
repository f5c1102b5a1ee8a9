// Package buffer holds the last structured result produced by a tool call so a
// later step can recover it after the orchestration runtime has flattened
// everything into chat text.
package buffer

import (
	"encoding/json"
	"fmt"
	"sync"
)

// emptyReply is what Closing returns before anything has been stored.
const emptyReply = `{"status":"ERROR","message":"No result found"}`

// Buffer is a single-slot, last-write-wins store. The zero value is ready to use.
type Buffer struct {
	mu   sync.Mutex
	data []byte
}

func New() *Buffer {
	return &Buffer{}
}

// Set replaces the stored payload with a snapshot of v. Later changes to v
// are not visible through the buffer.
func (b *Buffer) Set(v map[string]any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot result: %w", err)
	}
	b.mu.Lock()
	b.data = data
	b.mu.Unlock()
	return nil
}

// Get returns a fresh copy of the stored payload.
func (b *Buffer) Get() (map[string]any, bool) {
	b.mu.Lock()
	data := b.data
	b.mu.Unlock()
	if data == nil {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Closing returns the stored payload as JSON, or an ERROR document when the
// buffer is empty. It is the reply handed back when a conversation closes.
func (b *Buffer) Closing() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return emptyReply
	}
	return string(b.data)
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
}
