package flow

import "time"

const NO_TRIGGER = "no trigger"

type Result struct {
	Success     bool
	Error       string
	CompletedAt time.Time
	Steps       int
	Variables   map[string]any
}
