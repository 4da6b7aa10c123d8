package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/timetomeet/auth"
	"github.com/jrsteele09/timetomeet/internal/config"
	"github.com/jrsteele09/timetomeet/realtime"
	"github.com/jrsteele09/timetomeet/server"
	"github.com/jrsteele09/timetomeet/sessions"
	mongosessionrepo "github.com/jrsteele09/timetomeet/sessions/mongorepo"
	fakesessionrepo "github.com/jrsteele09/timetomeet/sessions/repofakes"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/jrsteele09/timetomeet/users"
	mongouserrepo "github.com/jrsteele09/timetomeet/users/mongorepo"
	fakeuserrepo "github.com/jrsteele09/timetomeet/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var errPanicRecovered = errors.New("panic recovered")

func main() {
	for {
		err := run()
		if err == nil {
			break
		}
		if !errors.Is(err, errPanicRecovered) {
			log.Fatal().Err(err).Msg("Error running server")
		}
		log.Error().Err(err).Msg("Restarting server")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errPanicRecovered
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo, sessionRepo, closeStore, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	if c.GetSigningKey() == "" {
		log.Warn().Msg("TOKEN_SIGNING_KEY is not set, every login will fail")
	}
	signer := token.NewHMACSigner(c.GetSigningKey())
	issuer := token.NewIssuer(signer,
		token.WithIssuer(c.GetTokenIssuer()),
		token.WithTTL(c.GetTokenTTL()),
		token.WithSecretLength(c.GetTokenSecretLength()),
	)
	verifier := token.NewVerifier(signer)

	sessionManager, err := sessions.NewManager(sessionRepo, issuer, verifier)
	if err != nil {
		return err
	}
	resetTokens := auth.ResetTokens{
		Issuer: token.NewIssuer(signer,
			token.WithIssuer(c.GetTokenIssuer()),
			token.WithSubject(token.ResetSubject),
			token.WithTTL(c.GetResetTokenTTL()),
		),
		Verifier: token.NewVerifier(signer, token.WithExpectedSubject(token.ResetSubject)),
	}
	accounts, err := auth.NewAccountService(auth.Repos{Users: userRepo}, sessionManager, resetTokens,
		auth.WithResetURL(c.GetResetURL()),
	)
	if err != nil {
		return err
	}

	allowedOrigins := c.GetAllowedOrigins()
	hub := realtime.NewHub(verifier, realtime.WithCheckOrigin(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowedOrigins.IsAllowedOrigin("*") || allowedOrigins.IsAllowedOrigin(origin)
	}))
	go hub.Run(ctx)

	handler, err := server.New(c, accounts, sessionManager, hub)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	cancel()
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// openStore returns the repositories for the configured backend and a func
// releasing it.
func openStore(ctx context.Context, c config.Config) (users.UserRepo, sessions.Repo, func(), error) {
	switch c.GetStore() {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return fakeuserrepo.NewFakeUserRepo(), fakesessionrepo.NewFakeSessionRepo(), func() {}, nil

	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, c.GetMongoConnectTimeout())
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(c.GetMongoURI()))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mongo.Connect: %w", err)
		}
		disconnect := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Err(err).Msg("Failed to disconnect from MongoDB")
			}
		}
		if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
			disconnect()
			return nil, nil, nil, fmt.Errorf("mongo ping: %w", err)
		}

		db := client.Database(c.GetMongoDatabase())
		userRepo := mongouserrepo.New(db)
		sessionRepo := mongosessionrepo.New(db)
		if err := userRepo.EnsureIndexes(connectCtx); err != nil {
			disconnect()
			return nil, nil, nil, err
		}
		if err := sessionRepo.EnsureIndexes(connectCtx); err != nil {
			disconnect()
			return nil, nil, nil, err
		}
		log.Info().Str("database", c.GetMongoDatabase()).Msg("Connected to MongoDB")
		return userRepo, sessionRepo, disconnect, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE %q", c.GetStore())
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
