// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
// Один и тот же файл читают и портал, и sandbox: каждый сервис берёт нужные ему секции.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	API                     API         `yaml:"api"`
	Session                 Session     `yaml:"session"`
	CSRF                    CSRF        `yaml:"csrf"`
	RateLimit               RateLimit   `yaml:"rate_limit"`
	Cache                   CacheTTL    `yaml:"cache"`
	GoogleOAuth             GoogleOAuth `yaml:"google_oauth"`
	RabbitMQ                RabbitMQ    `yaml:"rabbitmq"`
	Scheduler               Scheduler   `yaml:"scheduler"`
	Seed                    Seed        `yaml:"seed"`
	CORS                    CORS        `yaml:"cors"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кэш портала.
type RedisConnection struct {
	Addr        string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// API настройки клиента REST-бэкенда платформы.
// Таймаут - единственная политика ожидания, повторов нет.
type API struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8081"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// Session настройки cookie, в которой портал хранит токен доступа.
type Session struct {
	CookieName string `yaml:"cookie_name" env-default:"speakup_session"`
	HashKey    string `yaml:"hash_key" env:"SESSION_HASH_KEY"`
	BlockKey   string `yaml:"block_key" env:"SESSION_BLOCK_KEY"`
	MaxAge     int    `yaml:"max_age" env-default:"86400"`
	Secure     bool   `yaml:"secure"`
}

// CSRF настройки защиты изменяющих запросов портала.
// Пустой ключ отключает проверку (локальная разработка и тесты).
type CSRF struct {
	AuthKey string `yaml:"auth_key" env:"CSRF_AUTH_KEY"`
	Secure  bool   `yaml:"secure"`
}

// RateLimit ограничение частоты попыток входа.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"1"`
	Burst int     `yaml:"burst" env-default:"3"`
}

// CacheTTL время жизни кэшированных коллекций портала.
type CacheTTL struct {
	TTL time.Duration `yaml:"ttl" env-default:"30s"`
}

// GoogleOAuth настройки входа через Google на стороне sandbox.
type GoogleOAuth struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url" env:"GOOGLE_REDIRECT_URL"`
	// PortalCallbackURL - адрес портала, куда sandbox возвращает выданный токен.
	PortalCallbackURL string `yaml:"portal_callback_url" env-default:"http://localhost:8080/auth/callback"`
}

// RabbitMQ настройки шины событий бронирований.
// Пустой URL отключает публикацию и подписку.
type RabbitMQ struct {
	URL      string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string        `yaml:"exchange" env-default:"bookings"`
	Queue    string        `yaml:"queue" env-default:"portal.cache"`
	Retries  int           `yaml:"retries" env-default:"5"`
	Delay    time.Duration `yaml:"delay" env-default:"2s"`
}

// Scheduler настройки фонового завершения прошедших занятий.
type Scheduler struct {
	Interval time.Duration `yaml:"interval" env-default:"1m"`
}

// Seed учётная запись администратора, которую sandbox создаёт при старте,
// если её ещё нет. Пустой email отключает создание.
type Seed struct {
	AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
}

// CORS источники, которым sandbox разрешает запросы из браузера.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:8080"`
}

// MustLoad загружает конфиг из файла, путь к которому задан в CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// String выводит конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage: %t\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"API:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"Session:\n"+
			"  CookieName: %s\n"+
			"  HashKey: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"RabbitMQ: %t\n"+
			"Seed:\n"+
			"  AdminEmail: %s\n"+
			"  AdminPassword: %s\n",
		c.Env,
		c.StorageConnectionString != "",
		c.MigrationsPath,
		c.Addr,
		redact(c.Password),
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.API.BaseURL,
		c.API.Timeout,
		c.Session.CookieName,
		redact(c.Session.HashKey),
		redact(c.JWTSecretKey),
		c.TokenTTL,
		c.RabbitMQ.URL != "",
		c.Seed.AdminEmail,
		redact(c.Seed.AdminPassword),
	)
}
