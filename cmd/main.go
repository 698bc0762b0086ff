package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	httpapi "github.com/immxrtalbeast/globe_rooms/internal/api/http"
	"github.com/immxrtalbeast/globe_rooms/internal/catalog"
	"github.com/immxrtalbeast/globe_rooms/internal/config"
	"github.com/immxrtalbeast/globe_rooms/internal/feed"
	"github.com/immxrtalbeast/globe_rooms/internal/recommend"
	"github.com/immxrtalbeast/globe_rooms/internal/repository"
	"github.com/immxrtalbeast/globe_rooms/internal/repository/model"
	"github.com/immxrtalbeast/globe_rooms/internal/service"
	"github.com/immxrtalbeast/globe_rooms/internal/session"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	repos, err := setupStorage(cfg.Storage)
	if err != nil {
		log.Error("failed to set up storage", sl.Err(err))
		os.Exit(1)
	}

	changes, err := setupFeed(cfg.Feed, log)
	if err != nil {
		log.Error("failed to set up change feed", sl.Err(err))
		os.Exit(1)
	}

	roomService := service.NewRoomService(repos.rooms, repos.participants, repos.messages, changes, log)
	chatService := service.NewChatService(repos.messages, changes, log)
	userService := service.NewUserService(repos.profiles, log)

	store := catalog.NewStore(catalog.NewLoader(log), catalog.SourceFor(cfg.Catalog.Source))

	var advisor httpapi.Recommender
	if cfg.Gemini.APIKey != "" {
		gemini := recommend.NewGeminiClient(recommend.GeminiOptions{
			APIKey:    cfg.Gemini.APIKey,
			BaseURL:   cfg.Gemini.BaseURL,
			Model:     cfg.Gemini.Model,
			FastModel: cfg.Gemini.FastModel,
			Timeout:   cfg.Gemini.Timeout,
		}, log)
		advisor = recommend.NewRelay(gemini, recommend.RelayOptions{
			Model:     gemini.Model(),
			FastModel: gemini.FastModel(),
		}, log)
	} else {
		log.Warn("gemini api key is not set, recommendations are disabled")
	}

	router := httpapi.SetupRouter(cfg.HTTP.AllowOrigins, httpapi.Controllers{
		Rooms:   httpapi.NewRoomController(roomService, chatService, cfg.HTTP.PublicURL),
		Users:   httpapi.NewUserController(userService),
		Catalog: httpapi.NewCatalogController(store, advisor),
		Sessions: httpapi.NewSessionController(session.Deps{
			Rooms:    roomService,
			Chat:     chatService,
			Profiles: userService,
			Feed:     changes,
			Catalog:  store,
			Log:      log,
		}, log),
	})

	log.Info("starting application",
		slog.String("addr", cfg.HTTP.Address),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("feed", cfg.Feed.Driver),
		slog.String("catalog", store.Source()),
	)
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", sl.Err(err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

type repositories struct {
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	messages     repository.MessageRepository
	profiles     repository.ProfileRepository
}

func setupStorage(cfg config.StorageConfig) (repositories, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return repositories{
			rooms:        repository.NewInMemoryRoomRepository(),
			participants: repository.NewInMemoryParticipantRepository(),
			messages:     repository.NewInMemoryMessageRepository(),
			profiles:     repository.NewInMemoryProfileRepository(),
		}, nil
	case config.DriverPostgres:
		db, err := connectDatabase(cfg.DSN)
		if err != nil {
			return repositories{}, err
		}
		return repositories{
			rooms:        repository.NewPostgresRoomRepository(db),
			participants: repository.NewPostgresParticipantRepository(db),
			messages:     repository.NewPostgresMessageRepository(db),
			profiles:     repository.NewPostgresProfileRepository(db),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func setupFeed(cfg config.FeedConfig, log *slog.Logger) (feed.Feed, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return feed.NewBroker(log), nil
	case config.DriverRedis:
		return feed.NewRedisFeed(cfg.RedisURL, log)
	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("feed postgres dsn is empty")
		}
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(5)
		return feed.NewPostgresFeed(db, cfg.PostgresDSN, log), nil
	default:
		return nil, fmt.Errorf("unknown feed driver %q", cfg.Driver)
	}
}

func connectDatabase(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
