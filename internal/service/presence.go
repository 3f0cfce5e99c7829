// Package service contains the business logic layer: activity merging,
// presence classification, the friendship graph, achievement evaluation,
// chat, and account management. Services receive repository interfaces
// and a logger; they never touch HTTP or SQL directly.
package service

import "time"

// Status is a user's presence classification.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusOffline Status = "offline"
)

// Rank orders statuses for feed sorting: online < idle < offline.
func (s Status) Rank() int {
	switch s {
	case StatusOnline:
		return 0
	case StatusIdle:
		return 1
	default:
		return 2
	}
}

// Default presence thresholds. Deployments tune these via configuration;
// the comparisons below are strict (<), so lastUpdate exactly at a
// threshold falls into the next-colder state.
const (
	DefaultIdleThreshold    = 2 * time.Minute
	DefaultOfflineThreshold = 5 * time.Minute
)

// PresenceResolver classifies recency of activity into online/idle/offline.
// It is pure computation; both thresholds are fixed at construction.
type PresenceResolver struct {
	idle    time.Duration
	offline time.Duration
}

// NewPresenceResolver builds a resolver. Non-positive or inverted
// thresholds fall back to the defaults.
func NewPresenceResolver(idle, offline time.Duration) *PresenceResolver {
	if idle <= 0 {
		idle = DefaultIdleThreshold
	}
	if offline <= idle {
		offline = DefaultOfflineThreshold
		if offline <= idle {
			offline = idle * 2
		}
	}
	return &PresenceResolver{idle: idle, offline: offline}
}

// Classify maps the time since lastUpdate to a status:
//
//	online  if now - lastUpdate < idle threshold
//	idle    if idle threshold <= now - lastUpdate < offline threshold
//	offline otherwise
//
// A zero lastUpdate means no aggregate exists today and is always
// offline.
func (r *PresenceResolver) Classify(lastUpdate, now time.Time) Status {
	if lastUpdate.IsZero() {
		return StatusOffline
	}
	since := now.Sub(lastUpdate)
	switch {
	case since < r.idle:
		return StatusOnline
	case since < r.offline:
		return StatusIdle
	default:
		return StatusOffline
	}
}
