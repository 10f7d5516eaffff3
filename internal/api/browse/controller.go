package browse

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/api/jwt"
	"github.com/kinship-media/kinship/internal/api/util"
	"github.com/kinship-media/kinship/internal/entitlement"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/labstack/echo/v4"
)

type (
	Service interface {
		Browse(profileID uuid.UUID, titleFilter string) (entitlement.Sets, error)
		Search(profileID uuid.UUID, titleFilter string) ([]*media.Candidate, error)
		Classify(profileID uuid.UUID, mediaID uuid.UUID) (entitlement.Classification, error)
	}

	Accounts interface {
		ResolveProfile(accountID uuid.UUID, profileID uuid.UUID) (*account.Profile, error)
	}

	AuthProvider interface {
		GetAuthenticatedAccountFromContext(ec echo.Context) (*jwt.AuthenticatedAccount, error)
	}

	candidateDto struct {
		MediaID uuid.UUID  `json:"media_id"`
		TitleID uuid.UUID  `json:"title_id"`
		Kind    media.Kind `json:"kind"`
		Title   string     `json:"title"`
	}

	browseDto struct {
		Playable    []candidateDto `json:"playable"`
		VisibleOnly []candidateDto `json:"visible_only"`
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
	eg.GET("/:profileID/", controller.browse)
	eg.GET("/:profileID/search/", controller.search)
	eg.GET("/:profileID/play/:mediaID/", controller.play)
}

// browse returns the strict, playability-partitioned view of every
// title the profile can reach. Clients render Playable as watchable
// and VisibleOnly as locked artwork.
func (controller *controller) browse(ec echo.Context) error {
	profile, err := controller.resolveProfile(ec)
	if err != nil {
		return err
	}

	sets, err := controller.service.Browse(profile.ID, ec.QueryParam("title"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusOK, browseDto{
		Playable:    util.ApplyConversion(sets.Playable, candidateToDto),
		VisibleOnly: util.ApplyConversion(sets.VisibleOnly, candidateToDto),
	})
}

// search returns the discovery view: everything the profile may
// surface in search results, playable or not.
func (controller *controller) search(ec echo.Context) error {
	profile, err := controller.resolveProfile(ec)
	if err != nil {
		return err
	}

	candidates, err := controller.service.Search(profile.ID, ec.QueryParam("title"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(candidates, candidateToDto))
}

// play gates stream access: the media must classify as playable for
// the acting profile right now, otherwise the request is rejected.
func (controller *controller) play(ec echo.Context) error {
	profile, err := controller.resolveProfile(ec)
	if err != nil {
		return err
	}

	mediaID, err := uuid.Parse(ec.Param("mediaID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Media ID is not a valid UUID")
	}

	classification, err := controller.service.Classify(profile.ID, mediaID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	if classification != entitlement.Playable {
		return echo.NewHTTPError(http.StatusForbidden, "This profile cannot play this title")
	}

	return ec.JSON(http.StatusOK, map[string]any{"media_id": mediaID, "playable": true})
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

func candidateToDto(candidate *media.Candidate) candidateDto {
	return candidateDto{
		MediaID: candidate.MediaID,
		TitleID: candidate.TitleID,
		Kind:    candidate.Kind,
		Title:   candidate.Title,
	}
}
