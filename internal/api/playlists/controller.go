package playlists

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/api/jwt"
	"github.com/kinship-media/kinship/internal/api/util"
	"github.com/kinship-media/kinship/internal/playlist"
	"github.com/labstack/echo/v4"
)

type (
	Service interface {
		Playlist(playlistID uuid.UUID) (*playlist.Playlist, error)
		CreatePlaylist(profileID uuid.UUID, title string) (*playlist.Playlist, error)
		ListPlaylists(profileID uuid.UUID) ([]*playlist.Playlist, error)
		GetPlaylist(profileID uuid.UUID, playlistID uuid.UUID) (*playlist.Playlist, []playlist.Item, error)
		DeletePlaylist(profileID uuid.UUID, playlistID uuid.UUID) error

		AddItem(profileID uuid.UUID, playlistID uuid.UUID, mediaID uuid.UUID) (*playlist.Item, error)
		RemoveItem(profileID uuid.UUID, playlistID uuid.UUID, mediaID uuid.UUID) error
		ReorderItems(profileID uuid.UUID, playlistID uuid.UUID, orderedItemIDs []uuid.UUID) error
		SetCurrent(profileID uuid.UUID, playlistID uuid.UUID, index int, progress float64) error
		ClearArtworkStale(profileID uuid.UUID, playlistID uuid.UUID) error
	}

	Accounts interface {
		ResolveProfile(accountID uuid.UUID, profileID uuid.UUID) (*account.Profile, error)
	}

	AuthProvider interface {
		GetAuthenticatedAccountFromContext(ec echo.Context) (*jwt.AuthenticatedAccount, error)
	}

	CreatePlaylistRequest struct {
		Title string `json:"title" validate:"required,min=1,max=128"`
	}

	AddItemRequest struct {
		MediaID uuid.UUID `json:"media_id" validate:"required"`
	}

	ReorderRequest struct {
		OrderedItemIDs []uuid.UUID `json:"ordered_item_ids" validate:"required,min=1"`
	}

	SetCurrentRequest struct {
		Index    int     `json:"index" validate:"min=0"`
		Progress float64 `json:"progress" validate:"min=0,max=1"`
	}

	playlistStubDto struct {
		ID           uuid.UUID `json:"id"`
		Title        string    `json:"title"`
		ArtworkStale bool      `json:"artwork_stale"`
	}

	itemDto struct {
		ID       uuid.UUID `json:"id"`
		MediaID  uuid.UUID `json:"media_id"`
		Position int       `json:"position"`
	}

	playlistDto struct {
		ID              uuid.UUID `json:"id"`
		Title           string    `json:"title"`
		CurrentIndex    int       `json:"current_index"`
		CurrentProgress float64   `json:"current_progress"`
		ArtworkStale    bool      `json:"artwork_stale"`
		Items           []itemDto `json:"items"`
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
	eg.GET("/:profileID/", controller.list)
	eg.POST("/:profileID/", controller.create)
	eg.GET("/:profileID/:id/", controller.get)
	eg.DELETE("/:profileID/:id/", controller.delete)

	eg.POST("/:profileID/:id/items/", controller.addItem)
	eg.DELETE("/:profileID/:id/items/:mediaID/", controller.removeItem)
	eg.POST("/:profileID/:id/order/", controller.reorder)
	eg.POST("/:profileID/:id/current/", controller.setCurrent)
	eg.POST("/:profileID/:id/artwork-refreshed/", controller.artworkRefreshed)
}

func (controller *controller) list(ec echo.Context) error {
	profile, err := controller.resolveProfile(ec)
	if err != nil {
		return err
	}

	playlists, err := controller.service.ListPlaylists(profile.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(playlists, playlistToStubDto))
}

func (controller *controller) create(ec echo.Context) error {
	profile, err := controller.resolveProfile(ec)
	if err != nil {
		return err
	}

	var request CreatePlaylistRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	list, err := controller.service.CreatePlaylist(profile.ID, request.Title)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusCreated, playlistToStubDto(list))
}

// get returns the playlist with its items. The service reconciles the
// playlist against current entitlement before answering, so the
// ordering and current-item pointer are always up to date.
func (controller *controller) get(ec echo.Context) error {
	profile, list, err := controller.resolvePlaylist(ec)
	if err != nil {
		return err
	}

	fresh, items, err := controller.service.GetPlaylist(profile.ID, list)
	if err != nil {
		return controller.mapError(err)
	}

	return ec.JSON(http.StatusOK, playlistToDto(fresh, items))
}

func (controller *controller) delete(ec echo.Context) error {
	profile, list, err := controller.resolvePlaylist(ec)
	if err != nil {
		return err
	}

	if err := controller.service.DeletePlaylist(profile.ID, list); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) addItem(ec echo.Context) error {
	profile, list, err := controller.resolvePlaylist(ec)
	if err != nil {
		return err
	}

	var request AddItemRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := controller.service.AddItem(profile.ID, list, request.MediaID)
	if err != nil {
		return controller.mapError(err)
	}

	return ec.JSON(http.StatusCreated, itemToDto(*item))
}

func (controller *controller) removeItem(ec echo.Context) error {
	profile, list, err := controller.resolvePlaylist(ec)
	if err != nil {
		return err
	}

	mediaID, err := uuid.Parse(ec.Param("mediaID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Media ID is not a valid UUID")
	}

	if err := controller.service.RemoveItem(profile.ID, list, mediaID); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) reorder(ec echo.Context) error {
	profile, list, err := controller.resolvePlaylist(ec)
	if err != nil {
		return err
	}

	var request ReorderRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.service.ReorderItems(profile.ID, list, request.OrderedItemIDs); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) setCurrent(ec echo.Context) error {
	profile, list, err := controller.resolvePlaylist(ec)
	if err != nil {
		return err
	}

	var request SetCurrentRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.service.SetCurrent(profile.ID, list, request.Index, request.Progress); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) artworkRefreshed(ec echo.Context) error {
	profile, list, err := controller.resolvePlaylist(ec)
	if err != nil {
		return err
	}

	if err := controller.service.ClearArtworkStale(profile.ID, list); err != nil {
		return controller.mapError(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) resolveProfile(ec echo.Context) (*account.Profile, error) {
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

func (controller *controller) resolvePlaylist(ec echo.Context) (*account.Profile, uuid.UUID, error) {
	profile, err := controller.resolveProfile(ec)
	if err != nil {
		return nil, uuid.Nil, err
	}

	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Playlist ID is not a valid UUID")
	}

	return profile, id, nil
}

func (controller *controller) mapError(err error) error {
	switch {
	case errors.Is(err, playlist.ErrPlaylistNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "No such playlist")
	case errors.Is(err, playlist.ErrItemNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
}

func playlistToStubDto(list *playlist.Playlist) playlistStubDto {
	return playlistStubDto{ID: list.ID, Title: list.Title, ArtworkStale: list.ArtworkStale}
}

func playlistToDto(list *playlist.Playlist, items []playlist.Item) playlistDto {
	return playlistDto{
		ID:              list.ID,
		Title:           list.Title,
		CurrentIndex:    list.CurrentIndex,
		CurrentProgress: list.CurrentProgress,
		ArtworkStale:    list.ArtworkStale,
		Items:           util.ApplyConversion(items, itemToDto),
	}
}

func itemToDto(item playlist.Item) itemDto {
	return itemDto{ID: item.ID, MediaID: item.MediaID, Position: item.Position}
}
