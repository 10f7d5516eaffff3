package profiles

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/api/jwt"
	"github.com/kinship-media/kinship/internal/rating"
	"github.com/labstack/echo/v4"
)

type (
	Store interface {
		CreateProfile(profile *account.Profile) error
		GetProfile(profileID uuid.UUID) (*account.Profile, error)
		ListProfiles(accountID uuid.UUID) ([]*account.Profile, error)
		UpdateProfileCeilings(profileID uuid.UUID, movie rating.MovieRating, tv rating.TVRating) error
		SetProfileLocked(profileID uuid.UUID, locked bool) error
		DeleteProfile(profileID uuid.UUID) error
	}

	AuthProvider interface {
		GetAuthenticatedAccountFromContext(ec echo.Context) (*jwt.AuthenticatedAccount, error)
	}

	CreateProfileRequest struct {
		DisplayName    string             `json:"display_name" validate:"required,min=1,max=64"`
		MaxMovieRating rating.MovieRating `json:"max_movie_rating"`
		MaxTVRating    rating.TVRating    `json:"max_tv_rating"`
	}

	UpdateCeilingsRequest struct {
		MaxMovieRating rating.MovieRating `json:"max_movie_rating"`
		MaxTVRating    rating.TVRating    `json:"max_tv_rating"`
	}

	SetLockedRequest struct {
		Locked bool `json:"locked"`
	}

	controller struct {
		store        Store
		authProvider AuthProvider
	}
)

func NewController(authProvider AuthProvider, store Store) *controller {
	return &controller{store, authProvider}
}

func (controller *controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.POST("/", controller.create)
	eg.GET("/:id/", controller.get)
	eg.POST("/:id/ceilings/", controller.updateCeilings)
	eg.POST("/:id/locked/", controller.setLocked)
	eg.DELETE("/:id/", controller.delete)
}

func (controller *controller) list(ec echo.Context) error {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	profiles, err := controller.store.ListProfiles(authenticated.AccountID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusOK, profiles)
}

func (controller *controller) create(ec echo.Context) error {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	var request CreateProfileRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	profile := &account.Profile{
		AccountID:      authenticated.AccountID,
		DisplayName:    request.DisplayName,
		MaxMovieRating: request.MaxMovieRating,
		MaxTVRating:    request.MaxTVRating,
	}
	if err := controller.store.CreateProfile(profile); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return ec.JSON(http.StatusCreated, profile)
}

func (controller *controller) get(ec echo.Context) error {
	profile, err := controller.ownedProfile(ec)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, profile)
}

func (controller *controller) updateCeilings(ec echo.Context) error {
	profile, err := controller.ownedProfile(ec)
	if err != nil {
		return err
	}

	var request UpdateCeilingsRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}

	if err := controller.store.UpdateProfileCeilings(profile.ID, request.MaxMovieRating, request.MaxTVRating); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) setLocked(ec echo.Context) error {
	profile, err := controller.ownedProfile(ec)
	if err != nil {
		return err
	}
	if profile.IsMain {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot lock the main profile")
	}

	var request SetLockedRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}

	if err := controller.store.SetProfileLocked(profile.ID, request.Locked); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) delete(ec echo.Context) error {
	profile, err := controller.ownedProfile(ec)
	if err != nil {
		return err
	}

	if err := controller.store.DeleteProfile(profile.ID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return ec.NoContent(http.StatusOK)
}

// ownedProfile parses the :id param and asserts the profile belongs to
// the authenticated account.
func (controller *controller) ownedProfile(ec echo.Context) (*account.Profile, error) {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized)
	}

	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Profile ID is not a valid UUID")
	}

	profile, err := controller.store.GetProfile(id)
	if err != nil || profile.AccountID != authenticated.AccountID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "No such profile")
	}

	return profile, nil
}
