package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBlock(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "no fence",
			response: "is_correct: true\nreason: \"matches\"",
			want:     "is_correct: true\nreason: \"matches\"",
		},
		{
			name:     "yaml fence",
			response: "Here you go:\n```yaml\nis_correct: true\nreason: \"matches\"\n```\nDone.",
			want:     "is_correct: true\nreason: \"matches\"",
		},
		{
			name:     "plain fence",
			response: "```\nis_correct: false\nreason: wrong year\n```",
			want:     "is_correct: false\nreason: wrong year",
		},
		{
			name:     "plain fence with other language tag",
			response: "```yml\nis_correct: false\nreason: wrong year\n```",
			want:     "is_correct: false\nreason: wrong year",
		},
		{
			name:     "unterminated yaml fence",
			response: "```yaml\nis_correct: true\nreason: ok",
			want:     "is_correct: true\nreason: ok",
		},
		{
			name:     "yaml fence wins over earlier plain fence",
			response: "```\nnoise\n```\n```yaml\nis_correct: true\nreason: ok\n```",
			want:     "is_correct: true\nreason: ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBlock(tt.response))
		})
	}
}

func TestParseVerdictUnfenced(t *testing.T) {
	got, err := ParseVerdict("is_correct: true\nreason: \"matches\"").Unwrap()
	require.NoError(t, err)
	assert.Equal(t, Verdict{IsCorrect: true, Reason: "matches"}, got)
}

func TestParseVerdictFencedMatchesUnfenced(t *testing.T) {
	inner := "is_correct: false\nreason: \"off by one\""

	plain := ParseVerdict(inner)
	tagged := ParseVerdict("Analysis:\n```yaml\n" + inner + "\n```")
	bare := ParseVerdict("```\n" + inner + "\n```")

	require.True(t, plain.IsOk())
	assert.Equal(t, plain, tagged)
	assert.Equal(t, plain, bare)
}

func TestParseVerdictFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     error
	}{
		{"missing is_correct", "reason: \"no verdict\"", ErrMissingIsCorrect},
		{"is_correct not bool", "is_correct: maybe\nreason: unsure", ErrIsCorrectNotBool},
		{"is_correct quoted", "is_correct: \"true\"\nreason: quoted", ErrIsCorrectNotBool},
		{"is_correct single quoted yes", "is_correct: 'yes'\nreason: quoted", ErrIsCorrectNotBool},
		{"is_correct quoted no", "is_correct: \"no\"\nreason: quoted", ErrIsCorrectNotBool},
		{"is_correct list", "is_correct: [true]\nreason: list", ErrIsCorrectNotBool},
		{"is_correct number", "is_correct: 1\nreason: number", ErrIsCorrectNotBool},
		{"missing reason", "is_correct: true", ErrMissingReason},
		{"not a mapping", "- is_correct\n- reason", ErrMalformedVerdict},
		{"invalid yaml", "is_correct: [true\nreason: x", ErrMalformedVerdict},
		{"empty response", "", ErrMissingIsCorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseVerdict(tt.response)
			require.False(t, result.IsOk())
			assert.True(t, errors.Is(result.Err(), tt.want), "got %v", result.Err())

			_, ok := result.Value()
			assert.False(t, ok)
		})
	}
}

func TestParseVerdictBooleanWords(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"False", false},
		{"yes", true},
		{"Yes", true},
		{"YES", true},
		{"no", false},
		{"No", false},
		{"on", true},
		{"ON", true},
		{"off", false},
		{"y", true},
		{"N", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseVerdict("is_correct: " + tt.value + "\nreason: ok").Unwrap()
			require.NoError(t, err)
			assert.Equal(t, Verdict{IsCorrect: tt.want, Reason: "ok"}, got)
		})
	}
}

func TestParseVerdictReasonText(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"string", "is_correct: true\nreason: fine", "fine"},
		{"number", "is_correct: true\nreason: 42", "42"},
		{"null", "is_correct: true\nreason:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.response).Unwrap()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Reason)
		})
	}
}
