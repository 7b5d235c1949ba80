package cli

import (
	"fmt"

	"github.com/vburojevic/filewatch/internal/output"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so scripted callers always get machine-readable
// failures.
func outputErrorCommon(globals *Globals, code, message, hint string) error {
	if globals != nil && globals.Format == "ndjson" {
		_ = output.NewNDJSONWriter(globals.Stdout, nil).WriteError(code, message, hint)
	} else if globals != nil {
		_ = output.NewTextWriter(globals.Stderr, nil).WriteError(code, message)
		if hint != "" {
			fmt.Fprintf(globals.Stderr, "Hint: %s\n", hint)
		}
	}
	return &CLIError{Code: code, Message: message, Hint: hint}
}
