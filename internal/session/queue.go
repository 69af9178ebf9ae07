package session

import (
	"slices"

	"moodwave/internal/catalog"
)

// Queue is the FIFO of pending tracks for manual mode. Not safe for
// concurrent use; the controller serializes access.
type Queue struct {
	items []catalog.Track
}

// Enqueue appends a track to the tail.
func (q *Queue) Enqueue(t catalog.Track) {
	q.items = append(q.items, t)
}

// Dequeue removes and returns the head track.
func (q *Queue) Dequeue() (catalog.Track, error) {
	if len(q.items) == 0 {
		return catalog.Track{}, ErrEmptyQueue
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, nil
}

// Peek returns up to n head tracks without mutating the queue. n <= 0
// returns the whole queue. Callers cap the view, not the queue.
func (q *Queue) Peek(n int) []catalog.Track {
	if n <= 0 || n > len(q.items) {
		n = len(q.items)
	}
	return slices.Clone(q.items[:n])
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	return len(q.items)
}

// Clear drops all queued tracks.
func (q *Queue) Clear() {
	q.items = nil
}
