package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gig-recommender/internal/common/errors"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		tmpl  string
		state State
		want  string
	}{
		{"single key", "Here is the potential testset : {potential_test_set}", State{"potential_test_set": "A, B, C"}, "Here is the potential testset : A, B, C"},
		{"optional missing", "prefs: {preferences?}.", State{}, "prefs: ."},
		{"optional present", "prefs: {preferences?}", State{"preferences": "quiet"}, "prefs: quiet"},
		{"repeated key", "{a}-{a}", State{"a": "x"}, "x-x"},
		{"json braces untouched", `args like {"sheetName": "malls"} and {k}`, State{"k": "v"}, `args like {"sheetName": "malls"} and v`},
		{"empty value", "[{ctx}]", State{"ctx": ""}, "[]"},
		{"value containing braces is not re-expanded", "{ctx}", State{"ctx": "{other}"}, "{other}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_MissingRequiredKey(t *testing.T) {
	_, err := Render("Here is the potential testset : {potential_test_set}", State{})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTemplateVariableMissing, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "potential_test_set")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"dataset_path", "dataset_sheets", "x"}, Keys("{dataset_path} {dataset_sheets} {dataset_path} {x?}"))
	assert.Empty(t, Keys("no placeholders"))
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, "`malls`, `tech_parks`", QuoteList([]string{"malls", "tech_parks"}))
}
