package sharing

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/api/jwt"
	"github.com/kinship-media/kinship/internal/api/util"
	"github.com/kinship-media/kinship/internal/social"
	"github.com/labstack/echo/v4"
)

type (
	Service interface {
		RequestFriendship(actor *account.Profile, otherAccountID uuid.UUID) (*social.Friendship, error)
		AcceptFriendship(actor *account.Profile, friendshipID uuid.UUID) error
		Unfriend(actor *account.Profile, friendshipID uuid.UUID) error
		ListFriendships(accountID uuid.UUID) ([]*social.Friendship, error)

		ShareLibraryWithFriend(actor *account.Profile, friendshipID uuid.UUID, libraryID uuid.UUID) error
		UnshareLibraryFromFriend(actor *account.Profile, friendshipID uuid.UUID, libraryID uuid.UUID) error
		FriendShareLibraries(actor *account.Profile, friendshipID uuid.UUID) ([]uuid.UUID, error)

		LinkLibraryToProfile(actor *account.Profile, profileID uuid.UUID, libraryID uuid.UUID) error
		UnlinkLibraryFromProfile(actor *account.Profile, profileID uuid.UUID, libraryID uuid.UUID) error

		SetTitleOverride(actor *account.Profile, profileID uuid.UUID, mediaID uuid.UUID, state social.OverrideState) error
		ClearTitleOverride(actor *account.Profile, profileID uuid.UUID, mediaID uuid.UUID) error
		ListOverrides(actor *account.Profile, profileID uuid.UUID) ([]*social.TitleOverride, error)
	}

	Accounts interface {
		ResolveProfile(accountID uuid.UUID, profileID uuid.UUID) (*account.Profile, error)
	}

	AuthProvider interface {
		GetAuthenticatedAccountFromContext(ec echo.Context) (*jwt.AuthenticatedAccount, error)
	}

	RequestFriendshipRequest struct {
		OtherAccountID uuid.UUID `json:"other_account_id" validate:"required"`
	}

	ShareLibraryRequest struct {
		LibraryID uuid.UUID `json:"library_id" validate:"required"`
	}

	SetOverrideRequest struct {
		State social.OverrideState `json:"state" validate:"required,oneof=allow block"`
	}

	friendshipDto struct {
		ID        uuid.UUID `json:"id"`
		OtherID   uuid.UUID `json:"other_account_id"`
		Accepted  bool      `json:"accepted"`
		CreatedAt time.Time `json:"created_at"`
	}

	overrideDto struct {
		MediaID uuid.UUID            `json:"media_id"`
		State   social.OverrideState `json:"state"`
	}

	controller struct {
		service      Service
		accounts     Accounts
		authProvider AuthProvider
	}
)

func NewController(authProvider AuthProvider, accounts Accounts, service Service) *controller {
	return &controller{service, accounts, authProvider}
}

func (controller *controller) SetRoutes(eg *echo.Group) {
	eg.GET("/:profileID/friendships/", controller.listFriendships)
	eg.POST("/:profileID/friendships/", controller.requestFriendship)
	eg.POST("/:profileID/friendships/:id/accept/", controller.acceptFriendship)
	eg.DELETE("/:profileID/friendships/:id/", controller.unfriend)

	eg.GET("/:profileID/friendships/:id/libraries/", controller.listFriendLibraries)
	eg.POST("/:profileID/friendships/:id/libraries/", controller.shareLibrary)
	eg.DELETE("/:profileID/friendships/:id/libraries/:libraryID/", controller.unshareLibrary)

	eg.POST("/:profileID/profiles/:targetID/libraries/", controller.linkLibrary)
	eg.DELETE("/:profileID/profiles/:targetID/libraries/:libraryID/", controller.unlinkLibrary)

	eg.GET("/:profileID/profiles/:targetID/overrides/", controller.listOverrides)
	eg.PUT("/:profileID/profiles/:targetID/overrides/:mediaID/", controller.setOverride)
	eg.DELETE("/:profileID/profiles/:targetID/overrides/:mediaID/", controller.clearOverride)
}

func (controller *controller) listFriendships(ec echo.Context) error {
	actor, err := controller.actor(ec)
	if err != nil {
		return err
	}

	friendships, err := controller.service.ListFriendships(actor.AccountID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(friendships, func(friendship *social.Friendship) friendshipDto {
		return friendshipToDto(friendship, actor.AccountID)
	}))
}

func (controller *controller) requestFriendship(ec echo.Context) error {
	actor, err := controller.actor(ec)
	if err != nil {
		return err
	}

	var request RequestFriendshipRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	friendship, err := controller.service.RequestFriendship(actor, request.OtherAccountID)
	if err != nil {
		return controller.mapError(err)
	}

	return ec.JSON(http.StatusCreated, friendshipToDto(friendship, actor.AccountID))
}

func (controller *controller) acceptFriendship(ec echo.Context) error {
	actor, friendshipID, err := controller.actorAndID(ec)
	if err != nil {
		return err
	}

	if err := controller.service.AcceptFriendship(actor, friendshipID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) unfriend(ec echo.Context) error {
	actor, friendshipID, err := controller.actorAndID(ec)
	if err != nil {
		return err
	}

	if err := controller.service.Unfriend(actor, friendshipID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) listFriendLibraries(ec echo.Context) error {
	actor, friendshipID, err := controller.actorAndID(ec)
	if err != nil {
		return err
	}

	libraryIDs, err := controller.service.FriendShareLibraries(actor, friendshipID)
	if err != nil {
		return controller.mapError(err)
	}

	return ec.JSON(http.StatusOK, libraryIDs)
}

func (controller *controller) shareLibrary(ec echo.Context) error {
	actor, friendshipID, err := controller.actorAndID(ec)
	if err != nil {
		return err
	}

	var request ShareLibraryRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.service.ShareLibraryWithFriend(actor, friendshipID, request.LibraryID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) unshareLibrary(ec echo.Context) error {
	actor, friendshipID, err := controller.actorAndID(ec)
	if err != nil {
		return err
	}

	libraryID, err := uuid.Parse(ec.Param("libraryID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Library ID is not a valid UUID")
	}

	if err := controller.service.UnshareLibraryFromFriend(actor, friendshipID, libraryID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) linkLibrary(ec echo.Context) error {
	actor, targetID, err := controller.actorAndTarget(ec)
	if err != nil {
		return err
	}

	var request ShareLibraryRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.service.LinkLibraryToProfile(actor, targetID, request.LibraryID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) unlinkLibrary(ec echo.Context) error {
	actor, targetID, err := controller.actorAndTarget(ec)
	if err != nil {
		return err
	}

	libraryID, err := uuid.Parse(ec.Param("libraryID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Library ID is not a valid UUID")
	}

	if err := controller.service.UnlinkLibraryFromProfile(actor, targetID, libraryID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) listOverrides(ec echo.Context) error {
	actor, targetID, err := controller.actorAndTarget(ec)
	if err != nil {
		return err
	}

	overrides, err := controller.service.ListOverrides(actor, targetID)
	if err != nil {
		return controller.mapError(err)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(overrides, func(override *social.TitleOverride) overrideDto {
		return overrideDto{MediaID: override.MediaID, State: override.State}
	}))
}

func (controller *controller) setOverride(ec echo.Context) error {
	actor, targetID, err := controller.actorAndTarget(ec)
	if err != nil {
		return err
	}

	mediaID, err := uuid.Parse(ec.Param("mediaID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Media ID is not a valid UUID")
	}

	var request SetOverrideRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.service.SetTitleOverride(actor, targetID, mediaID, request.State); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) clearOverride(ec echo.Context) error {
	actor, targetID, err := controller.actorAndTarget(ec)
	if err != nil {
		return err
	}

	mediaID, err := uuid.Parse(ec.Param("mediaID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Media ID is not a valid UUID")
	}

	if err := controller.service.ClearTitleOverride(actor, targetID, mediaID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

// actor resolves the acting profile from the URL. The social service
// additionally requires the actor to be the accounts main profile for
// every mutation.
func (controller *controller) actor(ec echo.Context) (*account.Profile, error) {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized)
	}

	profileID, err := uuid.Parse(ec.Param("profileID"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Profile ID is not a valid UUID")
	}

	profile, err := controller.accounts.ResolveProfile(authenticated.AccountID, profileID)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusForbidden, err.Error())
	}

	return profile, nil
}

func (controller *controller) actorAndID(ec echo.Context) (*account.Profile, uuid.UUID, error) {
	actor, err := controller.actor(ec)
	if err != nil {
		return nil, uuid.Nil, err
	}

	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Friendship ID is not a valid UUID")
	}

	return actor, id, nil
}

func (controller *controller) actorAndTarget(ec echo.Context) (*account.Profile, uuid.UUID, error) {
	actor, err := controller.actor(ec)
	if err != nil {
		return nil, uuid.Nil, err
	}

	targetID, err := uuid.Parse(ec.Param("targetID"))
	if err != nil {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Target profile ID is not a valid UUID")
	}

	return actor, targetID, nil
}

func (controller *controller) mapError(err error) error {
	switch {
	case errors.Is(err, social.ErrNotMainProfile),
		errors.Is(err, social.ErrNotParticipant),
		errors.Is(err, social.ErrLibraryNotOwned),
		errors.Is(err, social.ErrProfileMismatch):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, social.ErrFriendshipNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, social.ErrEpisodeOverride):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
}

func friendshipToDto(friendship *social.Friendship, viewer uuid.UUID) friendshipDto {
	other, _ := friendship.OtherAccount(viewer)
	return friendshipDto{
		ID:        friendship.ID,
		OtherID:   other,
		Accepted:  friendship.Accepted,
		CreatedAt: friendship.CreatedAt,
	}
}
