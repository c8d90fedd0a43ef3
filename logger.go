package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

func SetupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

type RoomLogger struct {
	zerolog zerolog.Logger
}

func GetRoomLogger(ip string, roomCode string, userID string) RoomLogger {
	return RoomLogger{log.With().Str("ip", ip).Str("room-code", roomCode).Str("user-id", userID).Logger()}
}

func (l RoomLogger) JoinedRoom() {
	l.zerolog.Info().Msg("Joined room")
}

func (l RoomLogger) Subscribed(transport string) {
	l.zerolog.Info().Str("transport", transport).Msg("Watching room")
}

func (l RoomLogger) Unsubscribed(transport string) {
	l.zerolog.Info().Str("transport", transport).Msg("Stopped watching room")
}

func (l RoomLogger) CompletedContest() {
	l.zerolog.Info().Msg("Contest completed")
}

func (l RoomLogger) RequestFailed(err error) {
	l.zerolog.Warn().Err(err).Msg("Room request failed")
}

func LogCreatedRoom(roomCode string, userID string) {
	log.Info().Str("room-code", roomCode).Str("user-id", userID).Msg("Created")
}

func LogMatched(userID string, problemID string) {
	log.Info().Str("user-id", userID).Str("problem", problemID).Msg("Matched 1v1")
}

func LogIssuedIdentity(userID string) {
	log.Info().Str("user-id", userID).Msg("Issued identity token")
}

func LogStartedServer(port string, backend StoreBackend) {
	log.Info().Str("store", string(backend)).Msgf("Starting server on port %v", port)
}

func LogStoppedServer() {
	log.Info().Msg("Server stopped")
}

func LogErrorWhileUpgradingHTTP(err error) {
	log.Error().Err(err).Msg("Error while upgrading HTTP")
}

func LogInternalError(err error) {
	log.Error().Err(err).Msg("Internal error")
}
