package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env
// y opcionalmente archivo .env).
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	HTTP    HTTPConfig
	JWT     JWTConfig
	SUNAT   SUNATConfig
	Mail    MailConfig
	Webhook WebhookConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// DBConfig configuración de PostgreSQL. Si DatabaseURL no está vacío se usa
// como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DatabaseURL si está definido, si no
// el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN construye el connection string con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig configuración de la cola de tareas (Redis).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig configuración del token de acceso a la API.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// SUNATConfig configuración del envío a SUNAT.
// AppEnv: "dev" no envía al WS (CDR simulado aceptado), "beta" usa el
// ambiente de pruebas, "prod" el de producción.
type SUNATConfig struct {
	AppEnv         string
	AttemptTimeout time.Duration // timeout de pared por intento de transmisión
	RatePerMinute  int           // cupo de envíos por minuto por emisor
	RateBurst      int
}

// MailConfig configuración SMTP para las notificaciones por correo.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// WebhookConfig valores por defecto de entrega de webhooks.
type WebhookConfig struct {
	Timeout           time.Duration
	DefaultMaxRetries int
	DefaultRetryDelay time.Duration
}

// Load lee la configuración desde variables de entorno (y opcionalmente .env).
// Las env vars tienen prioridad: APP_ENV, DB_HOST, REDIS_ADDR, SUNAT_ENV, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "facturalo-pe"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "facturalo"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", "localhost:6379"),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "facturalo-pe"),
		},
		SUNAT: SUNATConfig{
			AppEnv:         getString(v, "SUNAT_ENV", "dev"),
			AttemptTimeout: time.Duration(getInt(v, "SUNAT_ATTEMPT_TIMEOUT_SECONDS", 30)) * time.Second,
			RatePerMinute:  getInt(v, "SUNAT_RATE_PER_MINUTE", 10),
			RateBurst:      getInt(v, "SUNAT_RATE_BURST", 10),
		},
		Mail: MailConfig{
			Host:     getString(v, "MAIL_HOST", ""),
			Port:     getInt(v, "MAIL_PORT", 587),
			Username: getString(v, "MAIL_USERNAME", ""),
			Password: getString(v, "MAIL_PASSWORD", ""),
			From:     getString(v, "MAIL_FROM", "no-reply@facturalo.pe"),
		},
		Webhook: WebhookConfig{
			Timeout:           time.Duration(getInt(v, "WEBHOOK_TIMEOUT_SECONDS", 10)) * time.Second,
			DefaultMaxRetries: getInt(v, "WEBHOOK_MAX_RETRIES", 5),
			DefaultRetryDelay: time.Duration(getInt(v, "WEBHOOK_RETRY_DELAY_SECONDS", 60)) * time.Second,
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
