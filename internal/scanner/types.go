package scanner

import "strings"

// Outcome is the result of probing one domain. A failed probe carries only the
// domain; every other field stays nil.
type Outcome struct {
	Domain                string
	Success               bool
	IPAddr                *string
	Port                  *uint16
	Status                *int16
	ResultingURL          *string
	Date                  *string
	Server                *string
	ContentSecurityPolicy *string
	ContentType           *string
	Body                  *string
}

// Failed builds the failure outcome for a domain.
func Failed(domain string) Outcome {
	return Outcome{Domain: domain}
}

// BodyLen reports the length of the encoded body, or zero when it is absent.
func (o Outcome) BodyLen() int {
	if o.Body == nil {
		return 0
	}
	return len(*o.Body)
}

// StoreStatus tags the result of a persistence attempt.
type StoreStatus string

// Store statuses.
const (
	StoreStored  StoreStatus = "stored"
	StoreIgnored StoreStatus = "ignored"
	StoreDropped StoreStatus = "dropped"
)

// StoreResult reports what happened to an outcome at the store boundary. Err is
// set only when Status is StoreDropped.
type StoreResult struct {
	Status StoreStatus
	Err    error
}

// Stored reports a newly inserted row.
func Stored() StoreResult { return StoreResult{Status: StoreStored} }

// Ignored reports a write discarded because the domain already has a row.
func Ignored() StoreResult { return StoreResult{Status: StoreIgnored} }

// Dropped reports a write lost to a persistence error.
func Dropped(err error) StoreResult { return StoreResult{Status: StoreDropped, Err: err} }

// StripNUL removes embedded NUL characters, which Postgres rejects in TEXT columns.
func StripNUL(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}
