package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/rootscan/internal/scanner"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported stages.
const (
	StageRunStart Stage = "RUN_START"
	StageScanDone Stage = "SCAN_DONE"
	StageRunDone  Stage = "RUN_DONE"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Status classes. StatusNone marks domains that produced no response.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
	StatusNone  StatusClass = "none"
)

// Event captures one milestone of a scan run.
type Event struct {
	// RunID identifies the scan run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Domain is set on SCAN_DONE events.
	Domain string
	// Worker is the ordinal of the emitting worker.
	Worker int
	// Success reports whether the fetch produced a response.
	Success bool
	// StatusClass groups the response status; StatusNone on failures.
	StatusClass StatusClass
	// Bytes is the encoded body length.
	Bytes int64
	// Dur is the fetch latency on SCAN_DONE and the run wall time on RUN_DONE.
	Dur time.Duration
	// Store is the record store's verdict for the outcome.
	Store scanner.StoreStatus
	// Total is the queue size announced on RUN_START.
	Total int64
	// Note carries low-volume context such as an error string.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageScanDone:
		if e.Domain == "" {
			return errors.New("scan done requires domain")
		}
		if e.StatusClass == "" {
			return errors.New("scan done requires status class")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ClassifyStatus groups HTTP status codes.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}

// ClassifyOutcome returns the status class for a scan outcome.
func ClassifyOutcome(out scanner.Outcome) StatusClass {
	if !out.Success || out.Status == nil {
		return StatusNone
	}
	return ClassifyStatus(int(*out.Status))
}
