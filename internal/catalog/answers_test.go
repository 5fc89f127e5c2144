package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/iso-assessment/internal/models"
)

func TestParseAnswers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.Answers
	}{
		{"yaml flat", "c4_1: \"5\"\nc4_2: \"0\"\n", models.Answers{"c4_1": "5", "c4_2": "0"}},
		{"json flat", `{"c4_1": "3"}`, models.Answers{"c4_1": "3"}},
		{"wrapped", `{"answers": {"a5_1": "2"}, "found": true}`, models.Answers{"a5_1": "2"}},
		{"empty", "", models.Answers{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswers([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnswers_Invalid(t *testing.T) {
	_, err := ParseAnswers([]byte("- just\n- a list\n"))
	assert.Error(t, err)
}
