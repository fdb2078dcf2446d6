package models

import "time"

// ErrorEvent is the unit of incoming work: a detected fault or incident.
// Events are immutable once created; re-analysis never mutates the event.
type ErrorEvent struct {
	ID        string
	Source    string
	Timestamp time.Time
	Message   string
	Severity  Severity
	Context   EventContext
	Metadata  map[string]string
}

// EventContext carries the structured surroundings of an error.
type EventContext struct {
	FilePath    string
	Environment Environment
	StackTrace  string
}

// Environment enumerates deployment environments.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Severity captures impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)
