package config

import (
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/gommon/log"
)

type Config struct {
	HttpPort      int    `envconfig:"HTTP_PORT" required:"true"`
	RedisAddr     string `envconfig:"REDIS_ADDR" required:"true"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" required:"true"`
	RedisDB       int    `envconfig:"REDIS_DB" required:"false" default:"0"`
	MaxWorkers    int    `envconfig:"MAX_WORKERS" required:"false" default:"4"`

	// CanvasSize is the logical canvas edge in pixels; all stroke
	// coordinates live in [0, CanvasSize).
	CanvasSize        int     `envconfig:"CANVAS_SIZE" required:"false" default:"640"`
	DefaultResolution int     `envconfig:"DEFAULT_RESOLUTION" required:"false" default:"16"`
	MinZoom           float64 `envconfig:"MIN_ZOOM" required:"false" default:"0.25"`
	MaxZoom           float64 `envconfig:"MAX_ZOOM" required:"false" default:"8"`

	// FontPath points at a TTF/OTF used for attribution initials on
	// annotated exports; when empty the badges render without a letter.
	FontPath string `envconfig:"FONT_PATH" required:"false"`
}

var (
	c    Config
	once sync.Once
)

func Get() *Config {
	once.Do(func() {
		err := envconfig.Process("", &c)
		if err != nil {
			log.Fatal(err)
		}
	})
	return &c
}
