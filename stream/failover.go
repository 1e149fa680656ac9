// Package stream defines the domain model for playable media resources and their failover queues.
package stream

import "github.com/samber/mo"

// Next returns the stream that follows current in the failover queue,
// or None when current is the last entry or absent from the queue.
// Pure: the queue is never mutated.
func Next(queue *Queue, current *Stream) mo.Option[*Stream] {
	if queue == nil || current == nil {
		return mo.None[*Stream]()
	}

	for i, s := range queue.streams {
		if s.ID == current.ID {
			if i+1 < len(queue.streams) {
				return mo.Some(queue.streams[i+1])
			}
			return mo.None[*Stream]()
		}
	}

	return mo.None[*Stream]()
}
