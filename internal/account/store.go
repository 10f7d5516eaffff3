package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/rating"
	"github.com/kinship-media/kinship/pkg/logger"
)

var (
	ErrAccountNotFound = errors.New("account does not exist")
	ErrProfileNotFound = errors.New("profile does not exist")

	log = logger.Get("AccountStore")
)

type (
	// Profile is a viewing identity on an account. Exactly one profile
	// per account is the main profile; only the main profile may mutate
	// sharing and override state for the accounts content, and only it
	// receives the friend-share entitlement path.
	//
	// The json tags match the DB column names so rows survive the
	// JSONB aggregation used when loading an account with its profiles.
	Profile struct {
		ID             uuid.UUID          `db:"id" json:"id"`
		AccountID      uuid.UUID          `db:"account_id" json:"account_id"`
		DisplayName    string             `db:"display_name" json:"display_name"`
		IsMain         bool               `db:"is_main" json:"is_main"`
		Locked         bool               `db:"locked" json:"locked"`
		MaxMovieRating rating.MovieRating `db:"max_movie_rating" json:"max_movie_rating"`
		MaxTVRating    rating.TVRating    `db:"max_tv_rating" json:"max_tv_rating"`
		CreatedAt      time.Time          `db:"created_at" json:"created_at"`
		UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
	}

	accountBase struct {
		ID             uuid.UUID `db:"id"`
		Username       string    `db:"username"`
		HashedPassword []byte    `db:"password" json:"-"`
		HashSalt       []byte    `db:"salt" json:"-"`
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`
	}

	// accountModel is the accounts table columns combined with a JSON
	// representation of the coalesced profile rows joined in to the
	// query. The JsonColumn container is hidden from the public API.
	accountModel struct {
		accountBase
		Profiles database.JsonColumn[[]Profile] `db:"profiles"`
	}

	// Account is the external/public API for the account model.
	Account struct {
		accountBase
		Profiles []Profile
	}

	Store struct {
		hasher *argonHasher
	}
)

func NewStore() *Store {
	return &Store{
		newArgon2IdHasher(1, 64, 64*1024, 1, 128),
	}
}

// Create inserts a new account along with its main profile. The main
// profile carries unrestricted ceilings; sub-profiles are created
// separately with whatever ceilings the caller chooses.
func (store *Store) Create(db database.Queryable, username string, rawPassword []byte) (*Account, error) {
	hash, err := store.hasher.GenerateHash(rawPassword, []byte{})
	if err != nil {
		return nil, fmt.Errorf("provided password is invalid: %w", err)
	}

	accountID := uuid.New()
	_, err = db.Exec(`
		INSERT INTO accounts(id, username, password, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, current_timestamp, current_timestamp)
	`, accountID, username, hash.hash, hash.salt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert new account: %w", err)
	}

	mainProfile := &Profile{
		AccountID:      accountID,
		DisplayName:    username,
		IsMain:         true,
		MaxMovieRating: rating.AllMovies,
		MaxTVRating:    rating.AllTV,
	}
	if err := store.CreateProfile(db, mainProfile); err != nil {
		return nil, fmt.Errorf("failed to insert main profile for new account: %w", err)
	}

	log.Emit(logger.NEW, "Account %s created (main profile %s)\n", username, mainProfile.ID)
	return store.GetWithID(db, accountID)
}

func (store *Store) GetWithID(db database.Queryable, accountID uuid.UUID) (*Account, error) {
	query, args, err := selectAccountBuilder().Where("accounts.id=?", accountID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select account query: %w", err)
	}

	var model accountModel
	if err := db.Get(&model, db.Rebind(query), args...); err != nil {
		return nil, ErrAccountNotFound
	}

	return accountModelToAccount(&model), nil
}

// GetWithUsernameAndPassword finds an account with the matching
// username and returns it IF and ONLY IF the raw (unhashed) password
// provided hashes, with the same salt as the stored credential, to the
// same value.
func (store *Store) GetWithUsernameAndPassword(db database.Queryable, username string, rawPassword []byte) (*Account, error) {
	query, args, err := selectAccountBuilder().Where("accounts.username=?", username).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select account query: %w", err)
	}

	var model accountModel
	if err := db.Get(&model, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find account with username %s: %w", username, err)
	}

	if err := store.hasher.Compare(model.HashedPassword, model.HashSalt, rawPassword); err != nil {
		return nil, fmt.Errorf("password supplied for account %s is invalid: %v", username, err)
	}

	return accountModelToAccount(&model), nil
}

func (store *Store) CreateProfile(db database.Queryable, profile *Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	err := db.Get(profile, `
		INSERT INTO profiles(id, account_id, display_name, is_main, locked, max_movie_rating, max_tv_rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, current_timestamp, current_timestamp)
		RETURNING *
	`, profile.ID, profile.AccountID, profile.DisplayName, profile.IsMain, profile.Locked, profile.MaxMovieRating, profile.MaxTVRating)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

func (store *Store) GetProfile(db database.Queryable, profileID uuid.UUID) (*Profile, error) {
	var profile Profile
	if err := db.Get(&profile, `SELECT * FROM profiles WHERE id = $1`, profileID); err != nil {
		return nil, ErrProfileNotFound
	}

	return &profile, nil
}

// GetMainProfile returns the single main profile of the given account.
func (store *Store) GetMainProfile(db database.Queryable, accountID uuid.UUID) (*Profile, error) {
	var profile Profile
	if err := db.Get(&profile, `SELECT * FROM profiles WHERE account_id = $1 AND is_main`, accountID); err != nil {
		return nil, ErrProfileNotFound
	}

	return &profile, nil
}

func (store *Store) ListProfiles(db database.Queryable, accountID uuid.UUID) ([]*Profile, error) {
	var profiles []*Profile
	if err := db.Select(&profiles, `SELECT * FROM profiles WHERE account_id = $1 ORDER BY created_at`, accountID); err != nil {
		return nil, err
	}

	return profiles, nil
}

// UpdateProfileCeilings replaces both rating ceilings on a profile.
func (store *Store) UpdateProfileCeilings(db database.Queryable, profileID uuid.UUID, movie rating.MovieRating, tv rating.TVRating) error {
	_, err := db.Exec(`
		UPDATE profiles SET max_movie_rating = $1, max_tv_rating = $2, updated_at = current_timestamp
		WHERE id = $3
	`, movie, tv, profileID)
	return err
}

func (store *Store) SetProfileLocked(db database.Queryable, profileID uuid.UUID, locked bool) error {
	_, err := db.Exec(`UPDATE profiles SET locked = $1, updated_at = current_timestamp WHERE id = $2`, locked, profileID)
	return err
}

func (store *Store) DeleteProfile(db database.Queryable, profileID uuid.UUID) error {
	result, err := db.Exec(`DELETE FROM profiles WHERE id = $1 AND NOT is_main`, profileID)
	if err != nil {
		return err
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.New("profile cannot be deleted (missing, or is the accounts main profile)")
	}

	return nil
}

func (store *Store) RecordLogin(db database.Queryable, accountID uuid.UUID) error {
	_, err := db.Exec(`UPDATE accounts SET updated_at=current_timestamp WHERE id = $1`, accountID)
	return err
}

func selectAccountBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("accounts.*", "COALESCE(JSONB_AGG(TO_JSONB(profiles) ORDER BY profiles.created_at) FILTER (WHERE profiles.id IS NOT NULL), '[]') AS profiles").
		From("accounts").
		LeftJoin("profiles ON profiles.account_id = accounts.id").
		GroupBy("accounts.id")
}

func accountModelToAccount(model *accountModel) *Account {
	return &Account{
		accountBase: model.accountBase,
		Profiles:    *model.Profiles.Get(),
	}
}
