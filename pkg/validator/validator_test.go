package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type sample struct {
	ID     uuid.UUID       `validate:"uuid_required"`
	Weight decimal.Decimal `validate:"dec_gt0"`
	Price  decimal.Decimal `validate:"dec_gte0"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantTag string
	}{
		{
			name:  "valid",
			input: sample{ID: uuid.New(), Weight: decimal.RequireFromString("0.01"), Price: decimal.Zero},
		},
		{
			name:    "nil uuid",
			input:   sample{ID: uuid.Nil, Weight: decimal.NewFromInt(1)},
			wantTag: "uuid_required",
		},
		{
			name:    "zero weight",
			input:   sample{ID: uuid.New(), Weight: decimal.Zero},
			wantTag: "dec_gt0",
		},
		{
			name:    "negative price",
			input:   sample{ID: uuid.New(), Weight: decimal.NewFromInt(1), Price: decimal.NewFromInt(-1)},
			wantTag: "dec_gte0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(&tt.input)
			if tt.wantTag == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %+v", errs[0])
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d", len(errs))
			}
			if errs[0].Tag != tt.wantTag {
				t.Errorf("tag = %s, want %s", errs[0].Tag, tt.wantTag)
			}
		})
	}
}
