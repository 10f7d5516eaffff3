// Package rating models the two parental-guidance scales (movie
// certifications and TV certifications) as independent total orders.
// Callers never see the underlying ordinals; they only ask whether a
// profiles ceiling allows a given piece of content.
package rating

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type (
	// MovieRating is a point on the movie certification ladder. The zero
	// value (MovieUnrated) is the bottom of the order and doubles as the
	// effective rating of content with no certification recorded; the top
	// value (AllMovies) is the unrestricted ceiling.
	MovieRating int

	// TVRating is the equivalent ladder for televised content.
	TVRating int
)

const (
	MovieUnrated MovieRating = iota
	MovieG
	MoviePG
	MoviePG13
	MovieR
	MovieNC17
	AllMovies
)

const (
	TVUnrated TVRating = iota
	TVY
	TVY7
	TVG
	TVPG
	TV14
	TVMA
	AllTV
)

var (
	movieLabels = map[MovieRating]string{
		MovieUnrated: "NR",
		MovieG:       "G",
		MoviePG:      "PG",
		MoviePG13:    "PG-13",
		MovieR:       "R",
		MovieNC17:    "NC-17",
		AllMovies:    "ALL",
	}

	tvLabels = map[TVRating]string{
		TVUnrated: "NR",
		TVY:       "TV-Y",
		TVY7:      "TV-Y7",
		TVG:       "TV-G",
		TVPG:      "TV-PG",
		TV14:      "TV-14",
		TVMA:      "TV-MA",
		AllTV:     "ALL",
	}

	movieFromLabel = invert(movieLabels)
	tvFromLabel    = invert(tvLabels)
)

// Allows reports whether a ceiling of this value permits content with
// the provided rating.
//
// Uncertified content (the bottom value) is deliberately treated as the
// MOST restrictive content: only the unrestricted ceiling passes it.
// Everywhere else the comparison is a plain ordering check.
func (ceiling MovieRating) Allows(content MovieRating) bool {
	if ceiling == AllMovies {
		return true
	}
	if content == MovieUnrated {
		return false
	}

	return ceiling >= content
}

// Allows mirrors MovieRating.Allows for the TV certification ladder.
func (ceiling TVRating) Allows(content TVRating) bool {
	if ceiling == AllTV {
		return true
	}
	if content == TVUnrated {
		return false
	}

	return ceiling >= content
}

func (r MovieRating) String() string { return movieLabels[r] }
func (r TVRating) String() string    { return tvLabels[r] }

// ParseMovieRating maps a stored certification label back to its
// ordered value. Unknown labels are rejected rather than coerced so a
// corrupted row cannot silently widen an entitlement.
func ParseMovieRating(label string) (MovieRating, error) {
	if r, ok := movieFromLabel[label]; ok {
		return r, nil
	}

	return MovieUnrated, fmt.Errorf("unrecognised movie rating label '%s'", label)
}

func ParseTVRating(label string) (TVRating, error) {
	if r, ok := tvFromLabel[label]; ok {
		return r, nil
	}

	return TVUnrated, fmt.Errorf("unrecognised TV rating label '%s'", label)
}

// Ratings cross the process boundary (storage and JSON) as their
// labels, never their ordinals. Scanning a NULL column yields the
// bottom value, matching the absent-rating policy above.

func (r MovieRating) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }
func (r TVRating) MarshalJSON() ([]byte, error)    { return json.Marshal(r.String()) }

func (r *MovieRating) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}

	parsed, err := ParseMovieRating(label)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r *TVRating) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}

	parsed, err := ParseTVRating(label)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r MovieRating) Value() (driver.Value, error) { return r.String(), nil }
func (r TVRating) Value() (driver.Value, error)    { return r.String(), nil }

func (r *MovieRating) Scan(src any) error {
	label, err := scanLabel(src)
	if err != nil {
		return err
	}
	if label == "" {
		*r = MovieUnrated
		return nil
	}

	parsed, err := ParseMovieRating(label)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r *TVRating) Scan(src any) error {
	label, err := scanLabel(src)
	if err != nil {
		return err
	}
	if label == "" {
		*r = TVUnrated
		return nil
	}

	parsed, err := ParseTVRating(label)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func scanLabel(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan rating from %T", src)
	}
}

func invert[K comparable, V comparable](in map[K]V) map[V]K {
	out := make(map[V]K, len(in))
	for k, v := range in {
		out[v] = k
	}

	return out
}
