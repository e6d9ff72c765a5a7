package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	Admin    AdminConfig
	App      AppConfig
	Calendar CalendarConfig
	Checkout CheckoutConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	StateTokenTTL      time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	GenerationTimeout  time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
}

type AdminConfig struct {
	Emails []string
}

// AppConfig holds settings of the planner itself.
type AppConfig struct {
	// зона, в которой вычисляется "сегодня" для статуса плана
	Location    *time.Location
	FrontendURL string
}

type CalendarConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	AppleServerURL     string
	Timeout            time.Duration
}

type CheckoutConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type RedisConfig struct {
	URL         string
	CalendarTTL time.Duration
}

// Load загружает конфигурацию приложения из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	loaders := []func(*Config) error{
		loadServer,
		loadDatabase,
		loadAuth,
		loadAI,
		loadApp,
		loadCalendar,
		loadCheckout,
		loadRedis,
	}
	for _, load := range loaders {
		if err := load(&cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Admin = AdminConfig{
		Emails: parseCSVEnv("ADMIN_EMAILS"),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func loadServer(cfg *Config) error {
	port, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return err
	}

	// SSE-поток держит соединение открытым, поэтому запись по умолчанию без таймаута
	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 0)
	if err != nil {
		return err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return nil
}

func loadDatabase(cfg *Config) error {
	port, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return err
	}

	autoMigrate, err := parseBoolEnv("DB_AUTO_MIGRATE", true)
	if err != nil {
		return err
	}

	cfg.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            port,
		User:            getEnv("DB_USER", "mealplanner"),
		Password:        getEnv("DB_PASSWORD", "mealplanner"),
		Name:            getEnv("DB_NAME", "meal_planner"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
		AutoMigrate:     autoMigrate,
	}
	return nil
}

func loadAuth(cfg *Config) error {
	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return err
	}

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return err
	}

	stateTTL, err := parseDurationEnv("JWT_STATE_TTL", 10*time.Minute)
	if err != nil {
		return err
	}

	rateLimitPerMinute, err := parseIntEnv("AUTH_RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return err
	}

	rateLimitBurst, err := parseIntEnv("AUTH_RATE_LIMIT_BURST", 10)
	if err != nil {
		return err
	}

	cfg.Auth = AuthConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "meal-planner"),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		StateTokenTTL:      stateTTL,
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
	}
	return nil
}

func loadAI(cfg *Config) error {
	timeout, err := parseDurationEnv("AI_TIMEOUT", 60*time.Second)
	if err != nil {
		return err
	}

	generationTimeout, err := parseDurationEnv("AI_GENERATION_TIMEOUT", 2*time.Minute)
	if err != nil {
		return err
	}

	rateLimitPerMinute, err := parseIntEnv("AI_RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return err
	}

	rateLimitBurst, err := parseIntEnv("AI_RATE_LIMIT_BURST", 3)
	if err != nil {
		return err
	}

	maxOutputTokens, err := parseIntEnv("AI_MAX_OUTPUT_TOKENS", 8192)
	if err != nil {
		return err
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", "gemini"))
	defaultBaseURL := "https://api.groq.com/openai/v1"
	defaultModel := "llama-3.3-70b-versatile"
	if provider == "gemini" {
		defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
		defaultModel = "gemini-1.5-flash"
	}

	apiKey := getEnv("AI_API_KEY", "")
	if apiKey == "" && provider == "gemini" {
		apiKey = getEnv("GEMINI_API_KEY", "")
	}

	cfg.AI = AIConfig{
		Provider:           provider,
		APIKey:             apiKey,
		BaseURL:            getEnv("AI_BASE_URL", defaultBaseURL),
		Model:              getEnv("AI_MODEL", defaultModel),
		Timeout:            timeout,
		GenerationTimeout:  generationTimeout,
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
		MaxOutputTokens:    maxOutputTokens,
	}
	return nil
}

func loadApp(cfg *Config) error {
	name := getEnv("APP_TIMEZONE", "UTC")
	location, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("APP_TIMEZONE must be an IANA zone name: %w", err)
	}

	cfg.App = AppConfig{
		Location:    location,
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
	}
	return nil
}

func loadCalendar(cfg *Config) error {
	timeout, err := parseDurationEnv("CALENDAR_TIMEOUT", 15*time.Second)
	if err != nil {
		return err
	}

	cfg.Calendar = CalendarConfig{
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/calendar/google/callback"),
		AppleServerURL:     getEnv("APPLE_CALDAV_URL", "https://caldav.icloud.com"),
		Timeout:            timeout,
	}
	return nil
}

func loadCheckout(cfg *Config) error {
	timeout, err := parseDurationEnv("CHECKOUT_TIMEOUT", 15*time.Second)
	if err != nil {
		return err
	}

	cfg.Checkout = CheckoutConfig{
		BaseURL: getEnv("CHECKOUT_BASE_URL", "https://connect.instacart.com"),
		APIKey:  getEnv("CHECKOUT_API_KEY", ""),
		Timeout: timeout,
	}
	return nil
}

func loadRedis(cfg *Config) error {
	ttl, err := parseDurationEnv("CALENDAR_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return err
	}

	cfg.Redis = RedisConfig{
		URL:         getEnv("REDIS_URL", ""),
		CalendarTTL: ttl,
	}
	return nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	return c.url("postgres")
}

// MigrateDSN возвращает адрес базы для golang-migrate (драйвер pgx/v5).
func (c DatabaseConfig) MigrateDSN() string {
	return c.url("pgx5")
}

func (c DatabaseConfig) url(scheme string) string {
	dsn := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.AI.Provider != "gemini" && c.AI.Provider != "groq" {
		return fmt.Errorf("AI_PROVIDER must be gemini or groq")
	}

	if c.Calendar.GoogleClientID != "" && c.Calendar.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set")
	}

	if c.AI.GenerationTimeout < c.AI.Timeout {
		return fmt.Errorf("AI_GENERATION_TIMEOUT cannot be shorter than AI_TIMEOUT")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
