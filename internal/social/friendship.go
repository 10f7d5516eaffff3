package social

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

type (
	// Friendship is an unordered pair of two distinct accounts stored
	// in canonical (sorted) order with a uniqueness hash over that
	// pair. Library shares hang off the friendship itself, not off
	// either account, so unfriending cascades them away in one step.
	Friendship struct {
		ID         uuid.UUID `db:"id"`
		Account1ID uuid.UUID `db:"account_1_id"`
		Account2ID uuid.UUID `db:"account_2_id"`
		PairHash   string    `db:"pair_hash"`
		Accepted   bool      `db:"accepted"`
		CreatedAt  time.Time `db:"created_at"`
	}

	FriendLibraryShare struct {
		ID           uuid.UUID `db:"id"`
		FriendshipID uuid.UUID `db:"friendship_id"`
		LibraryID    uuid.UUID `db:"library_id"`
		CreatedAt    time.Time `db:"created_at"`
	}

	ProfileLibraryShare struct {
		ID        uuid.UUID `db:"id"`
		ProfileID uuid.UUID `db:"profile_id"`
		LibraryID uuid.UUID `db:"library_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	OverrideState string

	TitleOverride struct {
		ID        uuid.UUID     `db:"id"`
		ProfileID uuid.UUID     `db:"profile_id"`
		MediaID   uuid.UUID     `db:"media_id"`
		State     OverrideState `db:"state"`
		CreatedAt time.Time     `db:"created_at"`
	}
)

const (
	OverrideAllow OverrideState = "allow"
	OverrideBlock OverrideState = "block"
)

// CanonicalPair orders two account IDs so that (a,b) and (b,a) always
// produce the same stored pair.
func CanonicalPair(a uuid.UUID, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}

	return a, b
}

// PairHash derives the uniqueness hash for a friendship from the
// canonical ordering of its two accounts.
func PairHash(a uuid.UUID, b uuid.UUID) string {
	first, second := CanonicalPair(a, b)
	sum := sha256.Sum256([]byte(first.String() + ":" + second.String()))
	return hex.EncodeToString(sum[:])
}

// OtherAccount returns the friendship participant that is not the
// provided account, and whether the provided account participates in
// this friendship at all.
func (friendship *Friendship) OtherAccount(accountID uuid.UUID) (uuid.UUID, bool) {
	switch accountID {
	case friendship.Account1ID:
		return friendship.Account2ID, true
	case friendship.Account2ID:
		return friendship.Account1ID, true
	}

	return uuid.Nil, false
}
