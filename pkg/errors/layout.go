package errors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MissingColumnError reports a logical field that could be resolved neither by
// header name nor by its fixed physical position.
func MissingColumnError(file, field string, position int, headers []string) *ReconcilerError {
	message := fmt.Sprintf("missing required column '%s' in %s: no header matched and column %d does not exist",
		field, displayName(file), position+1)

	return New(CategoryParse, CodeMissingColumn, message).
		WithSuggestion("verify the export was produced with the standard layout and has not been trimmed").
		WithContext("file", file).
		WithContext("column", field).
		WithContext("position", position+1).
		WithContext("headers", strings.Join(headers, ", "))
}

// TooFewRowsError reports an input whose preamble and header rows are not all present.
func TooFewRowsError(file, layout string, required, actual int) *ReconcilerError {
	message := fmt.Sprintf("%s file %s has %d rows, the %s layout needs at least %d before data starts",
		layout, displayName(file), actual, layout, required)

	return New(CategoryParse, CodeTooFewRows, message).
		WithSuggestion(fmt.Sprintf("check that the uploaded file really is a %s export", layout)).
		WithContext("file", file).
		WithContext("layout", layout).
		WithContext("required_rows", required).
		WithContext("actual_rows", actual)
}

// EncodingError reports a text file that could not be decoded.
func EncodingError(file string, line int, cause error) *ReconcilerError {
	return Wrap(cause, CategoryParse, CodeEncodingError,
		fmt.Sprintf("encoding error in file %s at line %d", displayName(file), line)).
		WithSuggestion("save the file in UTF-8 encoding").
		WithContext("file", file).
		WithContext("line", line)
}

func displayName(file string) string {
	if file == "" {
		return "<input>"
	}
	return filepath.Base(file)
}
