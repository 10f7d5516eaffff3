package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/api"
	"github.com/kinship-media/kinship/internal/api/jwt"
	"github.com/kinship-media/kinship/internal/browse"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/event"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/kinship-media/kinship/internal/playlist"
	"github.com/kinship-media/kinship/internal/social"
	"github.com/kinship-media/kinship/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	// Kinship is the top-level object for the server, responsible for
	// initialising the stores, services, event handling and the REST
	// gateway, then running them until stopped.
	Kinship struct {
		config   KinshipConfig
		eventBus event.EventCoordinator
		db       database.Manager

		accountService  *account.Service
		mediaService    *media.Service
		socialService   *social.Service
		browseService   *browse.Service
		playlistService *playlist.Service
		restGateway     RunnableService
	}
)

// New wires together every store and service. Nothing touches the
// database until Run connects it.
func New(config KinshipConfig) *Kinship {
	log.Emit(logger.DEBUG, "Bootstrapping Kinship services\n")

	eventBus := event.New()
	db := database.New()

	accountStore := account.NewStore()
	mediaStore := media.NewStore()
	socialStore := social.NewStore()
	playlistStore := playlist.NewStore()

	accountService := account.NewService(db, accountStore)
	mediaService := media.NewService(db, mediaStore, eventBus)
	socialService := social.NewService(db, socialStore, accountStore, mediaStore, eventBus)
	browseService := browse.NewService(db, accountStore, socialStore, mediaStore)
	playlistService := playlist.NewService(
		db, playlistStore, accountStore, socialStore, mediaStore, eventBus,
		config.Reconciler.Parallelism,
	)

	authProvider := jwt.NewJwtAuth(
		accountService,
		"/api/kinship/v1/auth/refresh/",
		[]byte(config.Auth.AuthTokenSecret),
		[]byte(config.Auth.RefreshTokenSecret),
	)

	restGateway := api.NewRestGateway(
		&config.Rest,
		authProvider,
		accountService,
		mediaService,
		browseService,
		playlistService,
		socialService,
		eventBus,
	)

	return &Kinship{
		config:          config,
		eventBus:        eventBus,
		db:              db,
		accountService:  accountService,
		mediaService:    mediaService,
		socialService:   socialService,
		browseService:   browseService,
		playlistService: playlistService,
		restGateway:     restGateway,
	}
}

// Run connects the database and brings up the long-running services.
// It does not return until the provided context is cancelled, or a
// service crashes beyond recovery.
func (kinship *Kinship) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := kinship.db.Connect(kinship.config.Database); err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	kinship.spawnAsyncService(ctx, wg, kinship.playlistService, "playlist-service", crashHandler)
	kinship.spawnAsyncService(ctx, wg, kinship.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Kinship services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService runs the provided service as its own goroutine,
// reporting panics and errors through the crash handler.
func (kinship *Kinship) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(ctx); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
