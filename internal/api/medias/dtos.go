package medias

import (
	"time"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/kinship-media/kinship/internal/rating"
)

type (
	libraryDto struct {
		ID        uuid.UUID `json:"id"`
		AccountID uuid.UUID `json:"account_id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	entryDto struct {
		ID          uuid.UUID          `json:"id"`
		LibraryID   uuid.UUID          `json:"library_id"`
		Kind        media.Kind         `json:"kind"`
		Title       string             `json:"title"`
		LinkedToID  *uuid.UUID         `json:"linked_to_id,omitempty"`
		MovieRating rating.MovieRating `json:"movie_rating"`
		TVRating    rating.TVRating    `json:"tv_rating"`
		CreatedAt   time.Time          `json:"created_at"`
		UpdatedAt   time.Time          `json:"updated_at"`
	}
)

func libraryToDto(library *media.Library) libraryDto {
	return libraryDto{
		ID:        library.ID,
		AccountID: library.AccountID,
		Title:     library.Title,
		CreatedAt: library.CreatedAt,
		UpdatedAt: library.UpdatedAt,
	}
}

func entryToDto(entry *media.Entry) entryDto {
	return entryDto{
		ID:          entry.ID,
		LibraryID:   entry.LibraryID,
		Kind:        entry.Kind,
		Title:       entry.Title,
		LinkedToID:  entry.LinkedToID,
		MovieRating: entry.MovieRating,
		TVRating:    entry.TVRating,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}
