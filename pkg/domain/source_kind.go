package domain

import dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"

// SourceKind identifies where an evidence record came from. The kind drives
// default confidence and conflict tie-breaking, so it is validated at trust
// boundaries rather than cast directly.
type SourceKind string

const (
	SourcePassportStamp SourceKind = "passport_stamp"
	SourceEmailBooking  SourceKind = "email_booking"
	SourceManual        SourceKind = "manual"
)

// sourcePriority orders kinds for conflict tie-breaking. Manual entries are
// deliberate user assertions and outrank anything extracted mechanically;
// stamps are official documents and outrank bookings, which prove intent to
// travel rather than travel itself.
var sourcePriority = map[SourceKind]int{
	SourceManual:        3,
	SourcePassportStamp: 2,
	SourceEmailBooking:  1,
}

// ParseSourceKind constructs a SourceKind from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseSourceKind(s string) (SourceKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "source kind is required")
	}
	k := SourceKind(s)
	if _, ok := sourcePriority[k]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "source kind must be one of passport_stamp, email_booking, manual")
	}
	return k, nil
}

// Priority returns the tie-break rank of the kind; higher wins. Unknown
// kinds rank below every valid kind.
func (k SourceKind) Priority() int {
	return sourcePriority[k]
}

// String returns the wire representation.
func (k SourceKind) String() string { return string(k) }

// SourceKinds lists all supported kinds in priority order, highest first.
func SourceKinds() []SourceKind {
	return []SourceKind{SourceManual, SourcePassportStamp, SourceEmailBooking}
}
