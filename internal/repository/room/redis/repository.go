package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// reserveRoomScript writes the room hash only if the key is absent.
// KEYS[1] room key, ARGV[1] ttl in ms, ARGV[2:] field/value pairs.
var reserveRoomScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('HSET', KEYS[1], unpack(ARGV, 2))
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	return 1
`)

type repo struct {
	rc      *redis.Client
	roomExp time.Duration
	logger  *slog.Logger
}

func NewRepo(rc *redis.Client, roomExp time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:      rc,
		roomExp: roomExp,
		logger:  logger,
	}
}
