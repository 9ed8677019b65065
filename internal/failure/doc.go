// Package failure defines the error taxonomy shared by the frame reader.
//
// Every per-member and per-file error produced while reading imager data is
// tagged with one of the sentinel markers so the batch layer can downgrade it
// to a problem entry and callers can branch with errors.Is. Kind maps an error
// to the short label used in logs, JSON output and the catalog.
package failure
