package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  It is built once at
// startup and passed explicitly to the services that need it.
type Config struct {
    Env               string        // application environment (e.g. "dev", "prod")
    Port              string        // HTTP port to listen on
    DBUser            string        // database username
    DBPass            string        // database password (optional)
    DBHost            string        // database host address
    DBPort            string        // database port number
    DBName            string        // database name
    JWTSecret         string        // secret used to sign access tokens
    AccessTTL         time.Duration // access token lifetime
    RefreshTTL        time.Duration // refresh session lifetime
    WorkshopCookieTTL time.Duration // lifetime of the workshop selection cookie
    BcryptCost        int           // bcrypt cost for password hashing
    CookiesSecure     bool          // mark session cookies Secure
    SessionSweepEvery time.Duration // interval of the expired refresh session sweep (0 disables)
}

// Load reads configuration values from environment variables and returns a
// Config.  In the dev environment a local .env file is loaded first.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
    if os.Getenv("APP_ENV") == "dev" {
        _ = godotenv.Load()
    }
    return Config{
        Env:               must("APP_ENV"),
        Port:              envStr("APP_PORT", "8080"),
        DBUser:            must("DB_USER"),
        DBPass:            os.Getenv("DB_PASS"), // empty allowed
        DBHost:            must("DB_HOST"),
        DBPort:            envStr("DB_PORT", "3306"),
        DBName:            must("DB_NAME"),
        JWTSecret:         must("JWT_SECRET"),
        AccessTTL:         envDur("ACCESS_TOKEN_TTL", 10*time.Minute),
        RefreshTTL:        envDur("REFRESH_TOKEN_TTL", 24*time.Hour),
        WorkshopCookieTTL: envDur("WORKSHOP_COOKIE_TTL", 10*time.Minute),
        BcryptCost:        mustInt("BCRYPT_COST"),
        CookiesSecure:     envBool("COOKIES_SECURE", false),
        SessionSweepEvery: envDur("SESSION_SWEEP_EVERY", time.Hour),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
