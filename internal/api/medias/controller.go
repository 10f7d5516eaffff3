package medias

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/api/jwt"
	"github.com/kinship-media/kinship/internal/api/util"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/kinship-media/kinship/internal/rating"
	"github.com/labstack/echo/v4"
)

type (
	Store interface {
		CreateLibrary(accountID uuid.UUID, title string) (*media.Library, error)
		GetLibrary(libraryID uuid.UUID) (*media.Library, error)
		ListLibraries(accountID uuid.UUID) ([]*media.Library, error)
		DeleteLibrary(libraryID uuid.UUID) error

		SaveEntry(entry *media.Entry) error
		GetEntry(mediaID uuid.UUID) (*media.Entry, error)
		ListEntries(libraryID uuid.UUID) ([]*media.Entry, error)
		DeleteEntry(mediaID uuid.UUID) error
	}

	AuthProvider interface {
		GetAuthenticatedAccountFromContext(ec echo.Context) (*jwt.AuthenticatedAccount, error)
	}

	CreateLibraryRequest struct {
		Title string `json:"title" validate:"required,min=1,max=128"`
	}

	CreateEntryRequest struct {
		Kind        media.Kind         `json:"kind" validate:"required,oneof=movie series episode"`
		Title       string             `json:"title" validate:"required,min=1,max=256"`
		LinkedToID  *uuid.UUID         `json:"linked_to_id,omitempty"`
		MovieRating rating.MovieRating `json:"movie_rating"`
		TVRating    rating.TVRating    `json:"tv_rating"`
		SourcePath  *string            `json:"source_path,omitempty"`
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
	eg.GET("/libraries/", controller.listLibraries)
	eg.POST("/libraries/", controller.createLibrary)
	eg.GET("/libraries/:id/", controller.getLibrary)
	eg.DELETE("/libraries/:id/", controller.deleteLibrary)

	eg.GET("/libraries/:id/entries/", controller.listEntries)
	eg.POST("/libraries/:id/entries/", controller.createEntry)
	eg.GET("/entries/:id/", controller.getEntry)
	eg.DELETE("/entries/:id/", controller.deleteEntry)
}

func (controller *controller) listLibraries(ec echo.Context) error {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	libraries, err := controller.store.ListLibraries(authenticated.AccountID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(libraries, libraryToDto))
}

func (controller *controller) createLibrary(ec echo.Context) error {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	var request CreateLibraryRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	library, err := controller.store.CreateLibrary(authenticated.AccountID, request.Title)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusCreated, libraryToDto(library))
}

func (controller *controller) getLibrary(ec echo.Context) error {
	library, err := controller.ownedLibrary(ec)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, libraryToDto(library))
}

func (controller *controller) deleteLibrary(ec echo.Context) error {
	library, err := controller.ownedLibrary(ec)
	if err != nil {
		return err
	}

	if err := controller.store.DeleteLibrary(library.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) listEntries(ec echo.Context) error {
	library, err := controller.ownedLibrary(ec)
	if err != nil {
		return err
	}

	entries, err := controller.store.ListEntries(library.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(entries, entryToDto))
}

// createEntry adds a movie, series or episode to an owned library.
// Episodes must link to a series; the store rejects any other parent
// and pins the episode to the parents library.
func (controller *controller) createEntry(ec echo.Context) error {
	library, err := controller.ownedLibrary(ec)
	if err != nil {
		return err
	}

	var request CreateEntryRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entry := &media.Entry{
		LibraryID:   library.ID,
		Kind:        request.Kind,
		Title:       request.Title,
		LinkedToID:  request.LinkedToID,
		MovieRating: request.MovieRating,
		TVRating:    request.TVRating,
		SourcePath:  request.SourcePath,
	}
	if err := controller.store.SaveEntry(entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return ec.JSON(http.StatusCreated, entryToDto(entry))
}

func (controller *controller) getEntry(ec echo.Context) error {
	entry, err := controller.ownedEntry(ec)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, entryToDto(entry))
}

func (controller *controller) deleteEntry(ec echo.Context) error {
	entry, err := controller.ownedEntry(ec)
	if err != nil {
		return err
	}

	if err := controller.store.DeleteEntry(entry.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *controller) ownedLibrary(ec echo.Context) (*media.Library, error) {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized)
	}

	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Library ID is not a valid UUID")
	}

	library, err := controller.store.GetLibrary(id)
	if err != nil || library.AccountID != authenticated.AccountID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "No such library")
	}

	return library, nil
}

func (controller *controller) ownedEntry(ec echo.Context) (*media.Entry, error) {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized)
	}

	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Entry ID is not a valid UUID")
	}

	entry, err := controller.store.GetEntry(id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "No such entry")
	}

	library, err := controller.store.GetLibrary(entry.LibraryID)
	if err != nil || library.AccountID != authenticated.AccountID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "No such entry")
	}

	return entry, nil
}
