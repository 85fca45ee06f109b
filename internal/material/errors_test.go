package material

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClassifyGenerationError checks the mapping of raw backend
// failures onto the two externally visible error kinds.
func TestClassifyGenerationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil stays nil",
			err:  nil,
			want: nil,
		},
		{
			name: "quota marker",
			err:  errors.New("Quota exceeded for model"),
			want: ErrQuotaExceeded,
		},
		{
			name: "resource exhausted marker",
			err:  errors.New("rpc error: RESOURCE_EXHAUSTED"),
			want: ErrQuotaExceeded,
		},
		{
			name: "rate limit marker",
			err:  errors.New("rate limit reached, slow down"),
			want: ErrQuotaExceeded,
		},
		{
			name: "http status marker",
			err:  errors.New("unexpected status 429"),
			want: ErrQuotaExceeded,
		},
		{
			name: "generic failure",
			err:  errors.New("model returned malformed JSON"),
			want: ErrGenerationFailed,
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			want: ErrGenerationFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyGenerationError(tc.err)
			if tc.want == nil {
				require.NoError(t, got)
				return
			}

			require.ErrorIs(t, got, tc.want)

			// The raw cause stays reachable for diagnostics.
			require.ErrorIs(t, got, tc.err)
		})
	}
}

// TestClassifyGenerationErrorPassthrough verifies that already
// classified errors are returned unchanged instead of being wrapped a
// second time.
func TestClassifyGenerationErrorPassthrough(t *testing.T) {
	quota := fmt.Errorf("%w: backend said no", ErrQuotaExceeded)
	require.Equal(t, quota, ClassifyGenerationError(quota))

	failed := fmt.Errorf("%w: flaky network", ErrGenerationFailed)
	require.Equal(t, failed, ClassifyGenerationError(failed))

	// A classified error never matches the other kind.
	require.NotErrorIs(t,
		ClassifyGenerationError(quota), ErrGenerationFailed)
}

// TestContentValidate covers the envelope checks applied to generation
// output before anything is cached.
func TestContentValidate(t *testing.T) {
	valid := Content{
		Summary:   "Resumo da Anatomia.",
		KeyPoints: []string{"Ponto 1"},
		Quiz: []QuizQuestion{{
			Question:     "Qual osso?",
			Options:      []string{"Fêmur", "Úmero"},
			CorrectIndex: 1,
		}},
		VisualPrompt: "esqueleto humano",
	}
	require.NoError(t, valid.Validate())

	noSummary := valid
	noSummary.Summary = ""
	require.Error(t, noSummary.Validate())

	noPoints := valid
	noPoints.KeyPoints = nil
	require.Error(t, noPoints.Validate())

	badQuiz := valid
	badQuiz.Quiz = []QuizQuestion{{
		Question:     "Qual osso?",
		Options:      []string{"Fêmur"},
		CorrectIndex: 1,
	}}
	require.Error(t, badQuiz.Validate())

	negativeIndex := valid
	negativeIndex.Quiz = []QuizQuestion{{
		Question:     "Qual osso?",
		Options:      []string{"Fêmur"},
		CorrectIndex: -1,
	}}
	require.Error(t, negativeIndex.Validate())
}
