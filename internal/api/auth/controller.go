package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/api/jwt"
	"github.com/kinship-media/kinship/pkg/logger"
	"github.com/labstack/echo/v4"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized)
	log             = logger.Get("AuthController")
)

type (
	Store interface {
		CreateAccount(username string, rawPassword []byte) (*account.Account, error)
		Login(username string, rawPassword []byte) (*account.Account, error)
		GetAccount(accountID uuid.UUID) (*account.Account, error)
	}

	AuthProvider interface {
		GetJwtVerifierMiddleware() echo.MiddlewareFunc
		GetAuthenticatedAccountFromContext(ec echo.Context) (*jwt.AuthenticatedAccount, error)
		GenerateTokenCookies(accountID uuid.UUID) (*http.Cookie, *http.Cookie, error)
		RefreshTokens(allegedRefreshToken string) (*http.Cookie, *http.Cookie, error)
		RevokeTokensInContext(ec echo.Context)
		RevokeAllForAccount(accountID uuid.UUID)
	}

	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	RegisterRequest struct {
		Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
		Password string `json:"password" validate:"required,min=8"`
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
	eg.POST("/register/", controller.register)
	eg.POST("/login/", controller.login)
	eg.POST("/refresh/", controller.refresh)
	eg.POST("/logout/", controller.logout, controller.authProvider.GetJwtVerifierMiddleware())
	eg.POST("/logout-all/", controller.logoutAll, controller.authProvider.GetJwtVerifierMiddleware())
	eg.GET("/current-account/", controller.currentAccount, controller.authProvider.GetJwtVerifierMiddleware())
}

// register creates a new account (and its main profile), and logs the
// new account in by issuing token cookies.
func (controller *controller) register(ec echo.Context) error {
	var request RegisterRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body invalid")
	}
	if err := ec.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	newAccount, err := controller.store.CreateAccount(request.Username, []byte(request.Password))
	if err != nil {
		log.Warnf("Failed to create account '%s': %v\n", request.Username, err)
		return echo.NewHTTPError(http.StatusConflict, "Unable to create account with this username")
	}

	if err := controller.setTokenCookies(ec, newAccount.ID); err != nil {
		return errUnauthorized
	}

	return ec.JSON(http.StatusCreated, newAccount)
}

// login asserts the provided credentials identify an account, then
// issues an auth token and refresh token as cookies on the response.
func (controller *controller) login(ec echo.Context) error {
	var request LoginRequest
	if err := ec.Bind(&request); err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	matched, err := controller.store.Login(request.Username, []byte(request.Password))
	if err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	if err := controller.setTokenCookies(ec, matched.ID); err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	return ec.JSON(http.StatusOK, matched)
}

// refresh exchanges a valid refresh token cookie for a new token pair.
func (controller *controller) refresh(ec echo.Context) error {
	cookie, err := ec.Cookie("refresh-token")
	if err != nil {
		return errUnauthorized
	}

	authCookie, refreshCookie, err := controller.authProvider.RefreshTokens(cookie.Value)
	if err != nil {
		log.Errorf("Failed to refresh: %s\n", err)
		return errUnauthorized
	}

	ec.SetCookie(authCookie)
	ec.SetCookie(refreshCookie)
	return ec.NoContent(http.StatusOK)
}

func (controller *controller) logout(ec echo.Context) error {
	controller.authProvider.RevokeTokensInContext(ec)
	return ec.NoContent(http.StatusOK)
}

func (controller *controller) logoutAll(ec echo.Context) error {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return errUnauthorized
	}

	controller.authProvider.RevokeAllForAccount(authenticated.AccountID)
	return ec.NoContent(http.StatusOK)
}

func (controller *controller) currentAccount(ec echo.Context) error {
	authenticated, err := controller.authProvider.GetAuthenticatedAccountFromContext(ec)
	if err != nil {
		return errUnauthorized
	}

	matched, err := controller.store.GetAccount(authenticated.AccountID)
	if err != nil {
		log.Errorf("Failed to get current account due to error: %v\n", err)
		return errUnauthorized
	}

	return ec.JSON(http.StatusOK, matched)
}

func (controller *controller) setTokenCookies(ec echo.Context, accountID uuid.UUID) error {
	authCookie, refreshCookie, err := controller.authProvider.GenerateTokenCookies(accountID)
	if err != nil {
		return err
	}

	ec.SetCookie(authCookie)
	ec.SetCookie(refreshCookie)
	return nil
}
