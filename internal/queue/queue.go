// Package queue defines the interface for publishing crawl events.
// This abstraction keeps the frontier independent of a specific messaging
// system; downstream consumers (enrichment pipelines, notification bots)
// subscribe to appended-issue events without coupling to the CLI.
package queue

import "context"

// Event describes one newsletter issue appended during a crawl run.
type Event struct {
	RunID     string `json:"run_id"`
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	LinkCount int    `json:"link_count"`
}

// Provider publishes crawl events.
type Provider interface {
	// Publish sends one appended-issue event. Implementations may batch
	// and send asynchronously.
	Publish(ctx context.Context, ev Event) error

	// Close flushes pending messages and releases client resources.
	Close() error
}

// NoOpProvider discards events. It is the default for local runs and tests.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Publish(_ context.Context, _ Event) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Close() error { return nil }
