// Package bridge connects an asynchronous generation task to a synchronous
// connection writer. The producer goroutine pushes encoded chunks while the
// handler blocks in Pull and forwards them to the socket.
package bridge

import (
	"io"
	"sync"
)

// Queue is a FIFO buffer for exactly one producer and one consumer.
// Push and Finish never block; Pull blocks until a chunk is available or the
// queue is finished. After Finish, a stored error is surfaced by Pull exactly
// once, then every call returns io.EOF.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	chunks   [][]byte
	finished bool
	err      error
	raised   bool
}

func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a chunk. No-op once the queue is finished.
func (q *Queue) Push(chunk []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finished {
		return
	}
	q.chunks = append(q.chunks, chunk)
	q.cond.Signal()
}

// Finish closes the queue with an optional terminal error. Idempotent: the
// second call is a no-op and the first error wins.
func (q *Queue) Finish(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finished {
		return
	}
	q.finished = true
	q.err = err
	q.cond.Signal()
}

// Pull returns the next chunk in push order. Once the buffer is drained and
// the queue finished, it returns the stored error once, then io.EOF.
func (q *Queue) Pull() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.chunks) == 0 && !q.finished {
		q.cond.Wait()
	}
	if len(q.chunks) > 0 {
		chunk := q.chunks[0]
		q.chunks = q.chunks[1:]
		return chunk, nil
	}
	if q.err != nil && !q.raised {
		q.raised = true
		return nil, q.err
	}
	return nil, io.EOF
}
