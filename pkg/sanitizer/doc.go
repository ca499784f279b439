// Package sanitizer normalizes user supplied shelter and booking fields
// before validation and storage.
//
// All functions are idempotent. Invalid input is returned in a form the
// validator will reject rather than as an error, so a single validation pass
// reports every problem.
//
// Normalization includes:
//   - Phone numbers: E.164 format (+[country][number])
//   - Names: collapse whitespace, trim leading and trailing spaces
//   - Identifiers: trim surrounding whitespace
package sanitizer
