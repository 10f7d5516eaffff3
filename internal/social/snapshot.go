package social

import (
	"fmt"

	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/entitlement"
)

// BuildSnapshot loads the complete entitlement input contract for one
// profile: owned libraries (account-wide), libraries reachable via
// accepted friendships, the profiles direct library shares and its
// override map. The result is an immutable value the evaluator can
// classify any number of candidates against without further queries.
//
// Locked profiles are the callers concern - locking is enforced at the
// request boundary, not inside the evaluator.
func (store *Store) BuildSnapshot(db database.Queryable, profile *account.Profile) (*entitlement.Snapshot, error) {
	owned, err := store.OwnedLibraryIDs(db, profile.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owned libraries for profile %s: %w", profile.ID, err)
	}

	viaFriends, err := store.FriendSharedLibraryIDs(db, profile.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friend-shared libraries for profile %s: %w", profile.ID, err)
	}

	shared, err := store.ProfileSharedLibraryIDs(db, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile shares for profile %s: %w", profile.ID, err)
	}

	overrides, err := store.OverrideMap(db, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides for profile %s: %w", profile.ID, err)
	}

	return entitlement.NewSnapshot(
		profile.ID,
		profile.IsMain,
		profile.MaxMovieRating,
		profile.MaxTVRating,
		owned,
		viaFriends,
		shared,
		overrides,
	), nil
}
