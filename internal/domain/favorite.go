package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// MaxRating is the top of the rating scale
const MaxRating = 5.0

// Rating is an optional score in (0, MaxRating]. The zero value means unrated.
type Rating struct {
	value float64
	set   bool
}

// NewRating validates v and returns a set rating.
func NewRating(v float64) (Rating, error) {
	if math.IsNaN(v) || v <= 0 || v > MaxRating {
		return Rating{}, fmt.Errorf("%w: %v", ErrInvalidRating, v)
	}
	return Rating{value: v, set: true}, nil
}

// NoRating returns an unset rating.
func NoRating() Rating { return Rating{} }

// Value returns the score and whether one is set.
func (r Rating) Value() (float64, bool) { return r.value, r.set }

// IsSet reports whether the rating carries a score.
func (r Rating) IsSet() bool { return r.set }

func (r Rating) String() string {
	if !r.set {
		return "unrated"
	}
	return fmt.Sprintf("%.1f", r.value)
}

// MarshalJSON encodes an unset rating as null.
func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.set {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts null or a number.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*r = Rating{}
		return nil
	}
	parsed, err := NewRating(*v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// FavoriteRecord is one user's favorite entry for an album.
// Absence of a record, not a false flag, means "not favorite".
type FavoriteRecord struct {
	RecordID   int64  `json:"recordId"` // Surrogate key assigned by the store
	AlbumID    string `json:"albumId"`
	UserID     string `json:"userId"`
	Comment    string `json:"comment,omitempty"`
	Rating     Rating `json:"rating"`
	AddedAt    int64  `json:"addedAt"` // Epoch millis
	IsFavorite bool   `json:"isFavorite"`
}
