package protocol

import (
	"errors"
	"fmt"
	"strings"

	"bridgeclient/internal/bridge"
)

// Errors mapped from the status codes a command reply can carry.
var (
	ErrUnknownClient = errors.New("unknown client")
	ErrNotFound      = errors.New("game not found")
	ErrAlreadyExists = errors.New("game already exists")
	ErrNotAuthorized = errors.New("not authorized")
	ErrSeatReserved  = errors.New("seat already reserved")
)

var statusErrors = map[string]error{
	"UNK": ErrUnknownClient,
	"NF":  ErrNotFound,
	"AE":  ErrAlreadyExists,
	"NA":  ErrNotAuthorized,
	"SR":  ErrSeatReserved,
	"RV":  bridge.ErrRuleViolation,
}

const errStatusPrefix = "ERR:"

// statusOK reports whether a reply status indicates success.
func statusOK(status string) bool {
	return strings.HasPrefix(status, "OK")
}

// errorFromStatus maps a failed reply status to an error value.
func errorFromStatus(status string) error {
	code := strings.TrimPrefix(status, errStatusPrefix)
	if err, ok := statusErrors[code]; ok {
		return err
	}
	return fmt.Errorf("command failed with status %q", status)
}
