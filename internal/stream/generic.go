package stream

import (
	"io"
	"sync"
)

// Input defines the input interface for TLV readers
type Input interface {
	Read(p []byte) (n int, err error)
}

// Output defines the output interface for TLV writers
type Output interface {
	Write(p []byte) (n int, err error)
	WriteString(s string) (n int, err error)
	Flush() error
}

// GenericWriter wraps any io.Writer as a stream.Output
type GenericWriter struct {
	io.Writer
}

func (w *GenericWriter) WriteString(s string) (int, error) {
	return w.Writer.Write([]byte(s))
}

func (w *GenericWriter) Flush() error {
	if f, ok := w.Writer.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Broadcast fans every write out to a changing set of outputs.
// A subscriber whose write fails is dropped.
type Broadcast struct {
	mu      sync.Mutex
	outputs map[Output]struct{}
}

// NewBroadcast creates an empty Broadcast
func NewBroadcast() *Broadcast {
	return &Broadcast{outputs: make(map[Output]struct{})}
}

// Subscribe adds o to the set of outputs
func (b *Broadcast) Subscribe(o Output) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[o] = struct{}{}
}

// Unsubscribe removes o from the set of outputs
func (b *Broadcast) Unsubscribe(o Output) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.outputs, o)
}

// Len returns the number of subscribed outputs
func (b *Broadcast) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.outputs)
}

func (b *Broadcast) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for o := range b.outputs {
		if _, err := o.Write(p); err != nil {
			delete(b.outputs, o)
		}
	}
	return len(p), nil
}

func (b *Broadcast) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

func (b *Broadcast) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for o := range b.outputs {
		o.Flush()
	}
	return nil
}
