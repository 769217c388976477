package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Telegram    Telegram `envPrefix:"BOT_"`
	Reminder    Reminder `envPrefix:"REMINDER_"`

	AdminID      int64  `env:"ADMIN_ID,required"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"orders.db"`
	CatalogPath  string `env:"CATALOG_PATH" envDefault:"products.json"`
	ReviewDir    string `env:"REVIEW_DIR" envDefault:"reviews"`
}

type Telegram struct {
	Token       string `env:"TOKEN,required"`
	PollTimeout int    `env:"POLL_TIMEOUT" envDefault:"30"`
}

type Reminder struct {
	// cron specs, one review-reminder sweep per entry
	Schedules []string `env:"SCHEDULES" envSeparator:"," envDefault:"0 10 * * *,0 18 * * *"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
