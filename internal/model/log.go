// Package model defines the core data structures for ProcLens.
package model

import "sort"

// Activity is a process step identified by its label.
type Activity string

// Trace is the ordered record of activities executed for one process
// instance. Repeated activities are permitted; order encodes execution
// order and is significant.
type Trace struct {
	// CaseID identifies the process instance this trace belongs to.
	CaseID string

	// Activities are the activity occurrences in execution order.
	Activities []Activity
}

// Contains reports whether the trace contains at least one occurrence
// of the given activity.
func (t Trace) Contains(a Activity) bool {
	for _, act := range t.Activities {
		if act == a {
			return true
		}
	}
	return false
}

// Len returns the number of activity occurrences in the trace.
func (t Trace) Len() int {
	return len(t.Activities)
}

// EventLog is a collection of traces. Trace order is not significant.
// An EventLog is produced once by a parsing collaborator and is treated
// as immutable by the engine.
type EventLog struct {
	Traces []Trace
}

// NewEventLog builds an event log from raw activity sequences.
// Convenient for tests and synthetic logs.
func NewEventLog(sequences ...[]Activity) *EventLog {
	log := &EventLog{Traces: make([]Trace, 0, len(sequences))}
	for _, seq := range sequences {
		log.Traces = append(log.Traces, Trace{Activities: seq})
	}
	return log
}

// Empty reports whether the log contains no traces.
func (l *EventLog) Empty() bool {
	return l == nil || len(l.Traces) == 0
}

// Alphabet returns the distinct activities observed across all traces,
// sorted for deterministic iteration. Uniqueness matters, order does not.
func (l *EventLog) Alphabet() []Activity {
	if l == nil {
		return nil
	}
	seen := make(map[Activity]struct{})
	for _, trace := range l.Traces {
		for _, act := range trace.Activities {
			seen[act] = struct{}{}
		}
	}
	alphabet := make([]Activity, 0, len(seen))
	for act := range seen {
		alphabet = append(alphabet, act)
	}
	sort.Slice(alphabet, func(i, j int) bool { return alphabet[i] < alphabet[j] })
	return alphabet
}
