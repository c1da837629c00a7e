package tensor

import "sync"

// Stream models an ordered queue of asynchronous work on some device.
//
// Record pins a buffer to the stream: the stream holds a reference until
// Synchronize, so the buffer is not recycled while queued work may still read it.
type Stream struct {
	id int

	mu      sync.Mutex
	pending []*tensorBuffer
}

// NewStream creates a stream with the given identifier.
func NewStream(id int) *Stream {
	return &Stream{id: id}
}

// ID returns the stream identifier.
func (s *Stream) ID() int {
	return s.id
}

// Record keeps r's buffer alive until the next Synchronize.
func (s *Stream) Record(r *RawTensor) {
	if r == nil {
		return
	}
	r.buffer.addRef()
	s.mu.Lock()
	s.pending = append(s.pending, r.buffer)
	s.mu.Unlock()
}

// Pending returns the number of buffer references held by the stream.
func (s *Stream) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Synchronize marks all queued work complete and drops the held references.
func (s *Stream) Synchronize() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, buf := range pending {
		buf.release()
	}
}
