package parsers

import (
	"strings"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
)

var headerReplacer = strings.NewReplacer(" ", "", ".", "", "_", "", "-", "")

// NormalizeHeader lowercases a header label and strips surrounding
// whitespace plus every space, period, underscore and hyphen, so that
// "Settle Amt", "settle_amt" and "SETTLE.AMT" all compare equal.
func NormalizeHeader(name string) string {
	return headerReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := NormalizeHeader(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// FindColumn returns the index of the first header satisfying req, in header
// order. A request with no usable tokens matches nothing.
func FindColumn(headers []string, req FieldRequest) (int, bool) {
	all := normalizeTokens(req.All)
	any := normalizeTokens(req.Any)
	if len(all) == 0 && len(any) == 0 {
		return -1, false
	}

	for i, header := range headers {
		norm := NormalizeHeader(header)
		if len(all) > 0 && !containsAll(norm, all) {
			continue
		}
		if len(any) > 0 && !containsAny(norm, any) {
			continue
		}
		return i, true
	}
	return -1, false
}

func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Resolution says where a logical column was found.
type Resolution struct {
	Column int
	ByName bool
	Header string
}

// ResolveColumn finds spec in frame: each header request in order, then the
// fixed position. It fails with a missing_column error only when the position
// lies outside the frame.
func ResolveColumn(frame *models.Frame, spec FieldSpec) (Resolution, error) {
	for _, req := range spec.Requests {
		if col, ok := FindColumn(frame.Headers, req); ok {
			return Resolution{Column: col, ByName: true, Header: frame.Headers[col]}, nil
		}
	}
	if err := requirePosition(frame, spec.Name, spec.Position); err != nil {
		return Resolution{}, err
	}
	return Resolution{Column: spec.Position, Header: headerAt(frame, spec.Position)}, nil
}

func requirePosition(frame *models.Frame, name string, position int) error {
	if position < 0 || position >= frame.Width() {
		return errors.MissingColumnError(frame.Source, name, position, frame.Headers)
	}
	return nil
}

func headerAt(frame *models.Frame, col int) string {
	if col < len(frame.Headers) {
		return frame.Headers[col]
	}
	return ""
}
