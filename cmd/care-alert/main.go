package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/frankss230/AFE-plus-2/internal/pkg/application/cases"
	"github.com/frankss230/AFE-plus-2/internal/pkg/application/escalation"
	"github.com/frankss230/AFE-plus-2/internal/pkg/application/telemetry"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/messaging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/router"
	"github.com/frankss230/AFE-plus-2/internal/pkg/presentation/api"

	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog"
)

const serviceName string = "care-alert"

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	configFile
	pairsFile
	devmode
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",
		configFile:    "/opt/care-alert/config/config.yaml",
		pairsFile:     "/opt/care-alert/config/pairs.csv",
		devmode:       "false",
	}
}

func main() {
	flags := parseExternalConfig(defaultFlags())

	ctx, logger := logging.NewLogger(context.Background(), serviceName, version())
	logger.Info().Msg("starting up ...")

	cfgFile, err := os.Open(flags[configFile])
	exitIf(err, logger, "could not open configuration file")

	cfg, err := telemetry.NewConfig(cfgFile)
	cfgFile.Close()
	exitIf(err, logger, "could not parse alert policy configuration")

	connect := newConnector(ctx, flags)

	registryRepo, err := database.NewRegistryRepository(connect)
	exitIf(err, logger, "could not create registry repository")

	caseRepo, err := database.NewCaseRepository(connect)
	exitIf(err, logger, "could not create case repository")

	telemetryRepo, err := database.NewTelemetryRepository(connect)
	exitIf(err, logger, "could not create telemetry repository")

	pairs, err := os.Open(flags[pairsFile])
	exitIf(err, logger, "could not open pairs file")

	err = database.SeedRegistry(ctx, registryRepo, pairs)
	pairs.Close()
	exitIf(err, logger, "could not seed registry")

	messenger := newMessenger(ctx, flags, logger)
	defer messenger.Close()

	dispatcher := newDispatcher(flags, logger)

	caseSvc := cases.New(caseRepo, registryRepo, messenger, dispatcher)
	sosSvc := escalation.New(registryRepo, caseSvc, caseRepo, dispatcher)
	telemetrySvc := telemetry.New(registryRepo, telemetryRepo, messenger, dispatcher, cfg)

	tokenAuth := jwtauth.New("HS256", []byte(env("JWT_SECRET", "")), nil)

	r := router.New(serviceName)
	_, err = api.RegisterHandlers(ctx, r, sosSvc, telemetrySvc, caseSvc, registryRepo, tokenAuth)
	exitIf(err, logger, "failed to register handlers")

	apiPort := fmt.Sprintf("%s:%s", flags[listenAddress], flags[servicePort])
	logger.Info().Str("address", apiPort).Msg("listening for incoming connections")

	err = http.ListenAndServe(apiPort, r)
	exitIf(err, logger, "failed to start request router")
}

func newConnector(ctx context.Context, flags flagMap) database.ConnectorFunc {
	if flags[devmode] == "true" {
		return database.NewSQLiteConnector(ctx)
	}
	return database.NewPostgreSQLConnector(ctx, database.LoadConfigFromEnv())
}

func newMessenger(ctx context.Context, flags flagMap, logger zerolog.Logger) messaging.MsgContext {
	if flags[devmode] == "true" {
		return messaging.NewNoOpMessenger()
	}

	messenger, err := messaging.Initialize(ctx, messaging.LoadConfigFromEnv())
	exitIf(err, logger, "failed to init messenger")

	return messenger
}

func newDispatcher(flags flagMap, logger zerolog.Logger) dispatch.Dispatcher {
	if flags[devmode] == "true" {
		return dispatch.NewNoOpDispatcher()
	}

	baseURL := os.Getenv("DISPATCH_BASE_URL")
	accessToken := os.Getenv("DISPATCH_ACCESS_TOKEN")

	if baseURL == "" {
		logger.Fatal().Msg("DISPATCH_BASE_URL is not set")
	}

	return dispatch.NewLineGateway(baseURL, accessToken)
}

func parseExternalConfig(flags flagMap) flagMap {
	// Allow environment variables to override certain defaults
	flags[listenAddress] = env("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = env("SERVICE_PORT", flags[servicePort])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("config", "alert policy configuration file", apply(configFile))
	flag.Func("pairs", "list of onboarded caretaker/dependent pairs", apply(pairsFile))
	flag.Func("devmode", "enable dev mode", apply(devmode))
	flag.Parse()

	return flags
}

func env(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	infoMap := map[string]string{}
	for _, s := range buildInfo.Settings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	if sha == "" {
		sha = "unknown"
	}

	return sha
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Fatal().Err(err).Msg(msg)
	}
}
