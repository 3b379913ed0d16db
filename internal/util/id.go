package util

import "github.com/google/uuid"

// NewID returns a fresh random identifier for correlating tool calls and
// turns across log lines.
func NewID() string { return uuid.NewString() }
