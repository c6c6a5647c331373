package events

import "log"

// Ops describing what happened to an entity.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change is published after a successful mutation so subscribers can
// refresh their view of the entity.
type Change struct {
	Entity string
	ID     string
	Op     string
}

// Sink receives change notifications. Publish must not block the caller
// for long and must never fail the mutation that produced the change.
type Sink interface {
	Publish(change Change)
}

// LogSink writes changes to the process log. It is the default sink when
// no realtime transport is wired in.
type LogSink struct{}

func (LogSink) Publish(change Change) {
	log.Printf("[events] %s %s id=%s", change.Op, change.Entity, change.ID)
}

// NoopSink drops all changes.
type NoopSink struct{}

func (NoopSink) Publish(Change) {}
