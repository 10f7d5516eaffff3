package rating_test

import (
	"encoding/json"
	"testing"

	"github.com/kinship-media/kinship/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MovieRating_Allows(t *testing.T) {
	tests := []struct {
		summary  string
		ceiling  rating.MovieRating
		content  rating.MovieRating
		expected bool
	}{
		{"ceiling above content", rating.MovieR, rating.MoviePG13, true},
		{"ceiling equal to content", rating.MoviePG13, rating.MoviePG13, true},
		{"ceiling below content", rating.MoviePG, rating.MoviePG13, false},
		{"bottom ceiling rejects everything rated", rating.MovieUnrated, rating.MovieG, false},
		{"unrestricted ceiling allows top rating", rating.AllMovies, rating.MovieNC17, true},
		{"unrestricted ceiling allows unrated", rating.AllMovies, rating.MovieUnrated, true},
		{"unrated content blocked by NC-17 ceiling", rating.MovieNC17, rating.MovieUnrated, false},
		{"unrated content blocked by unrated ceiling", rating.MovieUnrated, rating.MovieUnrated, false},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			assert.Equal(t, test.expected, test.ceiling.Allows(test.content))
		})
	}
}

func Test_TVRating_Allows(t *testing.T) {
	tests := []struct {
		summary  string
		ceiling  rating.TVRating
		content  rating.TVRating
		expected bool
	}{
		{"ceiling above content", rating.TVMA, rating.TV14, true},
		{"ceiling equal to content", rating.TVPG, rating.TVPG, true},
		{"ceiling below content", rating.TVY7, rating.TVPG, false},
		{"unrestricted ceiling allows everything", rating.AllTV, rating.TVMA, true},
		{"unrestricted ceiling allows unrated", rating.AllTV, rating.TVUnrated, true},
		{"unrated content blocked below top ceiling", rating.TVMA, rating.TVUnrated, false},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			assert.Equal(t, test.expected, test.ceiling.Allows(test.content))
		})
	}
}

// A ceiling must never allow content that a strictly higher ceiling
// rejects, for every pairing on both ladders.
func Test_Rating_Allows_IsMonotonic(t *testing.T) {
	for lower := rating.MovieUnrated; lower < rating.AllMovies; lower++ {
		higher := lower + 1
		for content := rating.MovieUnrated; content <= rating.AllMovies; content++ {
			if lower.Allows(content) {
				assert.Truef(t, higher.Allows(content),
					"movie ceiling %s allows %s but %s does not", lower, content, higher)
			}
		}
	}

	for lower := rating.TVUnrated; lower < rating.AllTV; lower++ {
		higher := lower + 1
		for content := rating.TVUnrated; content <= rating.AllTV; content++ {
			if lower.Allows(content) {
				assert.Truef(t, higher.Allows(content),
					"TV ceiling %s allows %s but %s does not", lower, content, higher)
			}
		}
	}
}

func Test_Rating_ParseRoundTrip(t *testing.T) {
	for r := rating.MovieUnrated; r <= rating.AllMovies; r++ {
		parsed, err := rating.ParseMovieRating(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	for r := rating.TVUnrated; r <= rating.AllTV; r++ {
		parsed, err := rating.ParseTVRating(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	_, err := rating.ParseMovieRating("X")
	assert.Error(t, err)
	_, err = rating.ParseTVRating("TV-X")
	assert.Error(t, err)
}

func Test_Rating_JsonUsesLabels(t *testing.T) {
	encoded, err := json.Marshal(rating.MoviePG13)
	require.NoError(t, err)
	assert.Equal(t, `"PG-13"`, string(encoded))

	var decoded rating.TVRating
	require.NoError(t, json.Unmarshal([]byte(`"TV-MA"`), &decoded))
	assert.Equal(t, rating.TVMA, decoded)

	var invalid rating.MovieRating
	assert.Error(t, json.Unmarshal([]byte(`"not-a-rating"`), &invalid))
}

func Test_Rating_ScanTreatsNullAsUnrated(t *testing.T) {
	var movie rating.MovieRating
	require.NoError(t, movie.Scan(nil))
	assert.Equal(t, rating.MovieUnrated, movie)

	var tv rating.TVRating
	require.NoError(t, tv.Scan([]byte("TV-14")))
	assert.Equal(t, rating.TV14, tv)
}
