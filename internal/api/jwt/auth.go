package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kinship-media/kinship/pkg/logger"
	"github.com/kinship-media/kinship/pkg/sync"
	"github.com/labstack/echo/v4"
)

var (
	ErrAuthTokenMissing = errors.New("request does not contain required auth token in cookies")

	log = logger.Get("JWT-Auth")
)

const (
	AuthTokenCookieName = "auth-token"
	AuthTokenLifespan   = time.Minute * 30

	RefreshTokenCookieName = "refresh-token"
	RefreshTokenLifespan   = time.Hour * 24 * 30 // 30 days

	accountContextKey = "account"
)

type (
	// AuthenticatedAccount is what endpoint handlers see after the
	// verifier middleware has accepted a request.
	AuthenticatedAccount struct {
		AccountID uuid.UUID
	}

	tokenClaims struct {
		jwt.RegisteredClaims
		AccountID uuid.UUID `json:"account_id"`
	}

	Store interface {
		RecordLogin(accountID uuid.UUID) error
	}

	jwtAuthProvider struct {
		store                  Store
		authTokenSecret        []byte
		refreshTokenSecret     []byte
		refreshTokenCookiePath string

		// Tokens we have explicitly revoked (e.g. on logout). Entries
		// are cleaned up shortly after the token would have expired
		// anyway.
		blacklistedTokens *sync.TypedSyncMap[string, struct{}]

		// Tracks the currently granted tokens per account so that
		// RevokeAllForAccount can find them. A token does not need to
		// appear here to be valid; this is purely for revocation.
		accountTokens *sync.TypedSyncMap[uuid.UUID, []string]
	}
)

// NewJwtAuth creates an authentication provider using signed JWT
// cookies. refreshRoutePath restricts where the browser sends the
// refresh token. The two secrets must differ and should be >= 256
// bits.
func NewJwtAuth(store Store, refreshRoutePath string, authTokenSecret []byte, refreshTokenSecret []byte) *jwtAuthProvider {
	return &jwtAuthProvider{
		store,
		authTokenSecret,
		refreshTokenSecret,
		refreshRoutePath,
		new(sync.TypedSyncMap[string, struct{}]),
		new(sync.TypedSyncMap[uuid.UUID, []string])}
}

// GenerateTokenCookies mints a short-lived auth token and a long-lived
// refresh token for the account, tracks them for later revocation, and
// returns them as cookies for the response.
func (auth *jwtAuthProvider) GenerateTokenCookies(accountID uuid.UUID) (*http.Cookie, *http.Cookie, error) {
	authToken, authTokenExp, err := auth.generateToken(accountID, AuthTokenLifespan, auth.authTokenSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate auth token: %w", err)
	}

	refreshToken, refreshTokenExp, err := auth.generateToken(accountID, RefreshTokenLifespan, auth.refreshTokenSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	// Don't block the request waiting for this
	go func() {
		if err := auth.store.RecordLogin(accountID); err != nil {
			log.Warnf("Failed to record login for %v: %v\n", accountID, err)
		}
	}()

	actual, loaded := auth.accountTokens.LoadOrStore(accountID, []string{authToken, refreshToken})
	if loaded {
		auth.accountTokens.Store(accountID, append(actual, authToken, refreshToken))
	}

	auth.scheduleTokenCleanup(accountID, authToken, authTokenExp)
	auth.scheduleTokenCleanup(accountID, refreshToken, refreshTokenExp)

	authTokenCookie := createTokenCookie(AuthTokenCookieName, "/", authToken, authTokenExp)
	refreshTokenCookie := createTokenCookie(RefreshTokenCookieName, auth.refreshTokenCookiePath, refreshToken, refreshTokenExp)
	return authTokenCookie, refreshTokenCookie, nil
}

// RefreshTokens validates the alleged refresh token and, if valid,
// mints a fresh pair of token cookies for its account.
func (auth *jwtAuthProvider) RefreshTokens(allegedRefreshToken string) (*http.Cookie, *http.Cookie, error) {
	accountID, err := auth.validateJWT(allegedRefreshToken, auth.refreshTokenSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to refresh: %w", err)
	}

	return auth.GenerateTokenCookies(*accountID)
}

// GetJwtVerifierMiddleware returns an echo middleware which rejects
// any request lacking a valid auth token cookie, and stores the
// authenticated account in the request context on success.
func (auth *jwtAuthProvider) GetJwtVerifierMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			tokenCookie, err := ec.Cookie(AuthTokenCookieName)
			if err != nil {
				log.Debugf("Rejecting request to %s: %v\n", ec.Request().RequestURI, ErrAuthTokenMissing)
				return echo.NewHTTPError(http.StatusUnauthorized)
			}

			accountID, err := auth.validateJWT(tokenCookie.Value, auth.authTokenSecret)
			if err != nil {
				log.Debugf("Rejecting request to %s: %v\n", ec.Request().RequestURI, err)
				return echo.NewHTTPError(http.StatusUnauthorized)
			}

			ec.Set(accountContextKey, &AuthenticatedAccount{AccountID: *accountID})
			return next(ec)
		}
	}
}

// GetAuthenticatedAccountFromContext extracts the account identity the
// verifier middleware stored. Errors if the middleware did not run.
func (auth *jwtAuthProvider) GetAuthenticatedAccountFromContext(ec echo.Context) (*AuthenticatedAccount, error) {
	account, ok := ec.Get(accountContextKey).(*AuthenticatedAccount)
	if !ok {
		return nil, errors.New("no account found in request context")
	}

	return account, nil
}

// RevokeTokensInContext revokes the auth and refresh tokens carried by
// this request, if present. Missing cookies are ignored.
func (auth *jwtAuthProvider) RevokeTokensInContext(ec echo.Context) {
	if cookie, err := ec.Cookie(AuthTokenCookieName); err == nil && cookie != nil {
		auth.revokeToken(cookie.Value)
	}
	if cookie, err := ec.Cookie(RefreshTokenCookieName); err == nil && cookie != nil {
		auth.revokeToken(cookie.Value)
	}
}

// RevokeAllForAccount revokes every token we have granted to the given
// account, forcing a fresh login on all of their devices.
func (auth *jwtAuthProvider) RevokeAllForAccount(accountID uuid.UUID) {
	grantedTokens, ok := auth.accountTokens.Load(accountID)
	if !ok {
		return
	}

	for _, granted := range grantedTokens {
		auth.revokeToken(granted)
	}
}

// validateJWT checks the token is signed with the expected secret, not
// expired, carries an account ID, and has not been revoked.
func (auth *jwtAuthProvider) validateJWT(token string, secret []byte) (*uuid.UUID, error) {
	claims := &jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(
		token,
		claims,
		func(token *jwt.Token) (interface{}, error) { return secret, nil },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	if tkn == nil || !tkn.Valid {
		return nil, errors.New("failed to verify JWT: token is expired or invalid")
	}

	accountID, err := getAccountIdFromClaims(*claims)
	if err != nil {
		return nil, fmt.Errorf("failed to extract accountID from JWT: %w", err)
	}

	if _, ok := auth.blacklistedTokens.Load(token); ok {
		return nil, errors.New("failed to verify JWT: token has been revoked")
	}

	return accountID, nil
}

func (auth *jwtAuthProvider) generateToken(accountID uuid.UUID, lifespan time.Duration, secret []byte) (string, time.Time, error) {
	exp := time.Now().Add(lifespan)
	claims := &tokenClaims{
		AccountID:        accountID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Now(), err
	}

	return tokenString, exp, nil
}

// scheduleTokenCleanup removes the token from the tracking maps
// shortly after its expiry so neither map grows without bound.
func (auth *jwtAuthProvider) scheduleTokenCleanup(accountID uuid.UUID, token string, expiry time.Time) {
	until := time.Until(expiry.Add(time.Second * 5))

	time.AfterFunc(until, func() {
		auth.blacklistedTokens.Delete(token)

		accountTokens, ok := auth.accountTokens.Load(accountID)
		if ok && len(accountTokens) > 0 {
			remaining := slices.DeleteFunc(accountTokens, func(tk string) bool { return tk == token })
			auth.accountTokens.Store(accountID, remaining)
		}
	})
}

func (auth *jwtAuthProvider) revokeToken(token string) {
	log.Debugf("Revoking token %s\n", token)
	auth.blacklistedTokens.Store(token, struct{}{})
}

func getAccountIdFromClaims(claims jwt.MapClaims) (*uuid.UUID, error) {
	if accountID, ok := claims["account_id"]; ok {
		if id, err := uuid.Parse(accountID.(string)); err != nil {
			return nil, fmt.Errorf("failed to extract account ID from JWT claims: %w", err)
		} else {
			return &id, nil
		}
	} else {
		return nil, errors.New("failed to extract account ID from JWT claims: missing")
	}
}

func createTokenCookie(name string, path string, token string, expiration time.Time) *http.Cookie {
	cookie := new(http.Cookie)
	cookie.Name = name
	cookie.Value = token
	cookie.Expires = expiration
	cookie.Path = path
	cookie.HttpOnly = true

	return cookie
}
