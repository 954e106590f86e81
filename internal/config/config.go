package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    ServiceWindow  time.Duration // how long a reservation holds its table past StartsAt
    ArrivalBuffer  time.Duration // slack applied on both sides of the service window
    GracePeriod    time.Duration // no-show allowance beyond the service window before expiry
    DebounceDwell  time.Duration // minimum dwell before telemetry may flip a table again
    SweepInterval  time.Duration // how often the expiry sweeper runs
    StreamPing     time.Duration // keep-alive interval on observer streams
    MailboxCap     int           // per-subscriber event buffer on the broadcast hub
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The booking and
// reconciliation tunables all have sensible defaults.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),      // environment (dev/test/prod)
        Port:           must("APP_PORT"),     // port to bind the HTTP server
        DBUser:         must("DB_USER"),      // database user
        DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:         must("DB_HOST"),      // database host
        DBPort:         must("DB_PORT"),      // database port
        DBName:         must("DB_NAME"),      // database name
        JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"), // bcrypt cost factor

        ServiceWindow: envDur("SERVICE_WINDOW", 2*time.Hour),
        ArrivalBuffer: envDur("ARRIVAL_BUFFER", 15*time.Minute),
        GracePeriod:   envDur("GRACE_PERIOD", 30*time.Minute),
        DebounceDwell: envDur("DEBOUNCE_DWELL", 3*time.Second),
        SweepInterval: envDur("SWEEP_INTERVAL", 5*time.Minute),
        StreamPing:    envDur("STREAM_PING", 15*time.Second),
        MailboxCap:    envInt("STREAM_MAILBOX_CAP", 64),
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
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
