// Package queue defines message payloads exchanged over the message broker.
package queue

// PageViewedQueue is the durable queue that carries PageViewedEvent messages.
const PageViewedQueue = "page.viewed"

// PageViewedEvent is published after a counter increment succeeds.  Count is
// the value reported to the visitor.
type PageViewedEvent struct {
    Key      string `json:"key"`
    Count    int64  `json:"count"`
    ViewedAt string `json:"viewed_at"`
}
