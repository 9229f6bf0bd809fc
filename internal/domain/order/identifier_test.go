package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/backend/internal/domain/shared"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "1001", "1001"},
		{"leading hash stripped", "#1001", "1001"},
		{"only one hash stripped", "##1001", "#1001"},
		{"surrounding whitespace trimmed", "  #1001  ", "1001"},
		{"whitespace inside kept", "ORD 42", "ORD 42"},
		{"case preserved", "Ord-1001", "Ord-1001"},
		{"hash then whitespace", "# 1001", "1001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeIdentifier(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdentifier_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "#", " # "} {
		t.Run("input "+input, func(t *testing.T) {
			_, err := NormalizeIdentifier(input)
			assert.ErrorIs(t, err, shared.ErrInvalidIdentifier)
		})
	}
}

func TestNormalizeIdentifier_EquivalentForms(t *testing.T) {
	// "#1001", "1001" and " 1001 " must all land on the same key
	forms := []string{"#1001", "1001", " 1001 ", " #1001"}
	for _, f := range forms {
		got, err := NormalizeIdentifier(f)
		require.NoError(t, err)
		assert.Equal(t, "1001", got)
	}
}
