package parsers

import (
	"testing"

	"settlement-reconciliation-service/internal/models"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		cell models.Cell
		want *float64
	}{
		{"currency text", models.TextCell("$1,234.50"), models.Float(1234.5)},
		{"negative text", models.TextCell("-12.5 USD"), models.Float(-12.5)},
		{"padded text", models.TextCell("  100 "), models.Float(100)},
		{"number cell", models.NumberCell(99.99), models.Float(99.99)},
		{"letters only", models.TextCell("N/A"), nil},
		{"lone period", models.TextCell("."), nil},
		{"inner minus", models.TextCell("1-2"), nil},
		{"blank", models.Cell{}, nil},
		{"trailing period", models.TextCell("5."), models.Float(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumber(tt.cell)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Expected no value, got %v", *got)
			case tt.want != nil && got == nil:
				t.Errorf("Expected %v, got no value", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("Expected %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestToNumbers(t *testing.T) {
	got := ToNumbers([]models.Cell{models.TextCell("1"), {}, models.NumberCell(2)})
	if len(got) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(got))
	}
	if got[0] == nil || *got[0] != 1 || got[1] != nil || got[2] == nil || *got[2] != 2 {
		t.Errorf("Unexpected values: %v", got)
	}
}
