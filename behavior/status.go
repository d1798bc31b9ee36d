package behavior

import (
	"fmt"
)

// Status is the result of ticking a node. The zero value is not a valid
// status, and is never returned by the engine.
type Status uint8

const (
	_ Status = iota
	// Running indicates the node has work remaining, and must be ticked again
	// on a later tick to make progress.
	Running
	// Success indicates the node completed successfully.
	Success
	// Failure indicates the node completed unsuccessfully.
	Failure
)

// IsTerminal returns true for Success and Failure.
func (s Status) IsTerminal() bool {
	return s == Success || s == Failure
}

// Valid returns true if s is one of Running, Success or Failure.
func (s Status) Valid() bool {
	return s >= Running && s <= Failure
}

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("unknown status (%d)", uint8(s))
	}
}

// invert swaps Success and Failure, leaving Running unchanged.
func (s Status) invert() Status {
	switch s {
	case Success:
		return Failure
	case Failure:
		return Success
	default:
		return s
	}
}
