package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=5000"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	SinkBufferSize    int           `env:"SINK_BUFFER_SIZE,default=64"`
	UnseenParallelism int           `env:"UNSEEN_PARALLELISM,default=8"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	StatsInterval     time.Duration `env:"STATS_INTERVAL,default=30s"`
	SearchResultLimit int           `env:"SEARCH_RESULT_LIMIT,default=20"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS,default=*"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CharacterRune validates that the configured replacement is one rune.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
