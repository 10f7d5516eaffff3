package api

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/kinship-media/kinship/internal/api/auth"
	"github.com/kinship-media/kinship/internal/api/browse"
	"github.com/kinship-media/kinship/internal/api/medias"
	"github.com/kinship-media/kinship/internal/api/playlists"
	"github.com/kinship-media/kinship/internal/api/profiles"
	"github.com/kinship-media/kinship/internal/api/sharing"
	"github.com/kinship-media/kinship/internal/http/websocket"
	"github.com/kinship-media/kinship/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// AuthProvider is the union of the per-controller auth interfaces;
	// satisfied by the jwt package's provider.
	AuthProvider interface {
		auth.AuthProvider
		GetJwtVerifierMiddleware() echo.MiddlewareFunc
	}

	// Accounts is what the gateway needs from the account service:
	// the auth store plus profile resolution for profile-scoped routes.
	Accounts interface {
		auth.Store
		profiles.Store
		browse.Accounts
	}

	requestValidator struct {
		validate *validator.Validate
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router.
	// Its sole responsibility is to create the routes Kinship exposes,
	// manage ongoing web socket connections, and to enforce the auth
	// middleware where applicable.
	RestGateway struct {
		*broadcaster
		config             *RestConfig
		ec                 *echo.Echo
		socket             *websocket.SocketHub
		authController     controller
		profileController  controller
		mediaController    controller
		browseController   controller
		playlistController controller
		sharingController  controller
	}
)

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// NewRestGateway constructs the Echo router and populates it with the
// routes defined by the various controllers.
func NewRestGateway(
	config *RestConfig,
	authProvider AuthProvider,
	accounts Accounts,
	mediaService medias.Store,
	browseService browse.Service,
	playlistService playlists.Service,
	sharingService sharing.Service,
	eventBus broadcastEventStream,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true
	ec.Validator = &requestValidator{validator.New()}

	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:        newBroadcaster(socket, eventBus, playlistService),
		config:             config,
		ec:                 ec,
		socket:             socket,
		authController:     auth.NewController(authProvider, accounts),
		profileController:  profiles.NewController(authProvider, accounts),
		mediaController:    medias.NewController(authProvider, mediaService),
		browseController:   browse.NewController(authProvider, accounts, browseService),
		playlistController: playlists.NewController(authProvider, accounts, playlistService),
		sharingController:  sharing.NewController(authProvider, accounts, sharingService),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET("/api/kinship/v1/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	authGroup := ec.Group("/api/kinship/v1/auth")
	gateway.authController.SetRoutes(authGroup)

	verifier := authProvider.GetJwtVerifierMiddleware()

	profileGroup := ec.Group("/api/kinship/v1/profiles", verifier)
	gateway.profileController.SetRoutes(profileGroup)

	mediaGroup := ec.Group("/api/kinship/v1/media", verifier)
	gateway.mediaController.SetRoutes(mediaGroup)

	browseGroup := ec.Group("/api/kinship/v1/browse", verifier)
	gateway.browseController.SetRoutes(browseGroup)

	playlistGroup := ec.Group("/api/kinship/v1/playlists", verifier)
	gateway.playlistController.SetRoutes(playlistGroup)

	sharingGroup := ec.Group("/api/kinship/v1/sharing", verifier)
	gateway.sharingController.SetRoutes(sharingGroup)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	// Forward playlist activity over the socket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.broadcaster.run(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
