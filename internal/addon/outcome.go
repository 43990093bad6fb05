package addon

import (
	"errors"
	"fmt"
)

// Outcome is the single discriminated result of a sync or install.
// The numeric values are stable and shared with persisted reports.
type Outcome int

const (
	None Outcome = iota
	ExtractManually
	FailedCopy
	FailedDownload
	FailedRequest
	FailedRetrieveAddonList
	HashMismatch
	NoHash
	NotInRegistry
)

var outcomeNames = [...]string{
	None:                    "none",
	ExtractManually:         "extract_manually",
	FailedCopy:              "failed_copy",
	FailedDownload:          "failed_download",
	FailedRequest:           "failed_request",
	FailedRetrieveAddonList: "failed_retrieve_addon_list",
	HashMismatch:            "hash_mismatch",
	NoHash:                  "no_hash",
	NotInRegistry:           "not_in_registry",
}

var outcomeTitles = [...]string{
	None:                    "",
	ExtractManually:         "Save and extract the addon manually.",
	FailedCopy:              "Failed to copy the addon.",
	FailedDownload:          "Failed to download the addon.",
	FailedRequest:           "The addon is not downloadable.",
	FailedRetrieveAddonList: "Failed to retrieve the addon list.",
	HashMismatch:            "Hash mismatch.",
	NoHash:                  "The registry record is not hashed.",
	NotInRegistry:           "Addon is not in the registry.",
}

var outcomeHints = [...]string{
	None:                    "",
	ExtractManually:         "The downloaded file is not a recognized archive. Install 7-Zip on your PATH or save and extract it by hand.",
	FailedCopy:              "The addon file is unreachable.",
	FailedDownload:          "Something may be wrong with your Internet connection. Please try again later.",
	FailedRequest:           "The server hosting the addon may be down, or the addon moved. Report it to the registry maintainer if this persists.",
	FailedRetrieveAddonList: "The registry server may be down or may have moved. Entries from that registry were kept as they were.",
	HashMismatch:            "The downloaded addon does not match the registry record and was not installed.",
	NoHash:                  "The registry record has no digest, so the addon cannot be verified. You may be using an unofficial registry.",
	NotInRegistry:           "Run sync, then pick a unit listed in the catalog.",
}

// String returns a stable snake_case name, used as a metrics label.
func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Title returns the one-line user-facing message.
func (o Outcome) Title() string {
	if o < 0 || int(o) >= len(outcomeTitles) {
		return ""
	}
	return outcomeTitles[o]
}

// Hint returns a longer explanation of what the user can do.
func (o Outcome) Hint() string {
	if o < 0 || int(o) >= len(outcomeHints) {
		return ""
	}
	return outcomeHints[o]
}

// Error carries an Outcome together with the unit name and the cause.
type Error struct {
	Kind Outcome
	Name string
	Err  error
}

// Sentinels for errors.Is comparisons; they match any *Error of the same Kind.
var (
	ErrExtractManually         = &Error{Kind: ExtractManually}
	ErrFailedCopy              = &Error{Kind: FailedCopy}
	ErrFailedDownload          = &Error{Kind: FailedDownload}
	ErrFailedRequest           = &Error{Kind: FailedRequest}
	ErrFailedRetrieveAddonList = &Error{Kind: FailedRetrieveAddonList}
	ErrHashMismatch            = &Error{Kind: HashMismatch}
	ErrNoHash                  = &Error{Kind: NoHash}
	ErrNotInRegistry           = &Error{Kind: NotInRegistry}
)

// NewError builds an *Error of the given kind.
func NewError(kind Outcome, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Title()
	if e.Name != "" {
		msg = e.Name + ": " + msg
	}
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// OutcomeOf extracts the Outcome carried by err. A nil error is None.
// ok is false for errors that carry no outcome, which callers treat as
// unexpected failures.
func OutcomeOf(err error) (Outcome, bool) {
	if err == nil {
		return None, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return None, false
}
