// Package apperr maps internal errors to short user-facing messages with a
// support code.
//
// # Error Codes Reference
//
// Documents (DOC001-DOC099):
//
//	DOC001 - Document could not be parsed (no table, no id, no header)
//	DOC002 - Document rows do not match its header, or a cell is not a number
//
// Rules (RULE001-RULE099):
//
//	RULE001 - A rule could not evaluate a document; other rules still ran
//	RULE002 - The rule set could not be loaded
//
// Database (DB001-DB099):
//
//	DB001 - Duplicate key: the document or discrepancy was already stored
//	DB003 - Foreign key: discrepancy points at a document that is not stored
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// Runs (RUN001-RUN099):
//
//	RUN001 - No input files matched
//	RUN002 - Run was interrupted
//	RUN003 - Run exceeded its time limit
//
// Other:
//
//	CFG001 - Configuration is missing or invalid
//	NF001  - Requested document or discrepancy does not exist
//	ERR000 - Anything else
//
// Sentinel errors are matched first with errors.Is; the remaining codes
// fall back to case-insensitive substring matching on the error text.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/discrepancy/internal/config"
	"github.com/JonMunkholm/discrepancy/internal/document"
	"github.com/JonMunkholm/discrepancy/internal/ingest"
	"github.com/JonMunkholm/discrepancy/internal/pipeline"
	"github.com/JonMunkholm/discrepancy/internal/rules"
	"github.com/JonMunkholm/discrepancy/internal/store"
)

// UserMessage is what a user sees for an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type sentinelMatch struct {
	target error
	msg    UserMessage
}

var (
	msgUnparsable = UserMessage{
		Message: "Document could not be parsed",
		Action:  "Check that the file holds a table with an id attribute and a header row",
		Code:    "DOC001",
	}
	msgMalformed = UserMessage{
		Message: "Document rows do not match its header",
		Action:  "Check that every body row has one numeric cell per header column",
		Code:    "DOC002",
	}
	msgRuleFailed = UserMessage{
		Message: "A rule could not evaluate this document",
		Action:  "Other rules still ran; review the rule diagnostics",
		Code:    "RULE001",
	}
	msgConflict = UserMessage{
		Message: "A record with this ID already exists",
		Action:  "The document was stored by an earlier run; nothing was overwritten",
		Code:    "DB001",
	}
	msgNotFound = UserMessage{
		Message: "Not found",
		Action:  "Check the document ID",
		Code:    "NF001",
	}
	msgNoDocuments = UserMessage{
		Message: "No input files matched",
		Action:  "Check the directory and the file pattern",
		Code:    "RUN001",
	}
	msgInterrupted = UserMessage{
		Message: "Run was interrupted",
		Action:  "Documents committed before the interruption are kept; run again to finish",
		Code:    "RUN002",
	}
	msgTimedOut = UserMessage{
		Message: "Run exceeded its time limit",
		Action:  "Raise DF_RUN_TIMEOUT or split the input directory",
		Code:    "RUN003",
	}
	msgConfig = UserMessage{
		Message: "Configuration is missing or invalid",
		Action:  "Check the DF_ environment variables and the .env file",
		Code:    "CFG001",
	}
)

var sentinels = []sentinelMatch{
	{ingest.ErrUnparsable, msgUnparsable},
	{document.ErrMalformed, msgMalformed},
	{store.ErrConflict, msgConflict},
	{store.ErrNotFound, msgNotFound},
	{pipeline.ErrNoDocuments, msgNoDocuments},
	{context.Canceled, msgInterrupted},
	{context.DeadlineExceeded, msgTimedOut},
	{config.ErrMissing, msgConfig},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg:     msgConflict,
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Discrepancy refers to a document that is not stored",
			Action:  "Store the document before its discrepancies",
			Code:    "DB003",
		},
	},
	{
		pattern: "unknown document",
		msg: UserMessage{
			Message: "Discrepancy refers to a document that is not stored",
			Action:  "Store the document before its discrepancies",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DF_DATABASE_URL and that the database is running",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later or raise the timeout",
			Code:    "DB006",
		},
	},
	{
		pattern: "unknown rule",
		msg: UserMessage{
			Message: "The rule set could not be loaded",
			Action:  "Check rule names and parameters in the rules file",
			Code:    "RULE002",
		},
	},
	{
		pattern: "rules file",
		msg: UserMessage{
			Message: "The rule set could not be loaded",
			Action:  "Check rule names and parameters in the rules file",
			Code:    "RULE002",
		},
	},
	{
		pattern: "config",
		msg:     msgConfig,
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError returns the user message for err. A nil error maps to the zero
// UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinels {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}
	var diag rules.Diagnostic
	if errors.As(err, &diag) {
		return msgRuleFailed
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError wraps err with its mapped message. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
