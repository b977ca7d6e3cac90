package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig configures the redis token bucket.  Capacity tokens are
// available up front and RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// AuthRateLimits holds the per-endpoint limits placed in front of the
// credential endpoints.
type AuthRateLimits struct {
    Login    RateLimitConfig
    Register RateLimitConfig
    Refresh  RateLimitConfig
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 { def.Capacity = b }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        def.RefillTokens = 1
        def.RefillInterval = every
    }
    return def.normalize()
}

// LoadAuthRateLimits derives per-minute limits for login, register and
// refresh from the base config.  Keys are per client IP and route.
func LoadAuthRateLimits(base RateLimitConfig) AuthRateLimits {
    perMinute := func(prefix string, n int) RateLimitConfig {
        c := base
        c.Capacity = n
        c.RefillTokens = 1
        c.RefillInterval = time.Minute / time.Duration(n)
        c.KeyStrategy = "ip_route"
        c.Prefix = base.Prefix + ":" + prefix
        return c.normalize()
    }
    return AuthRateLimits{
        Login:    perMinute("login", envInt("RATE_LIMIT_LOGIN_PER_MIN", 10)),
        Register: perMinute("register", envInt("RATE_LIMIT_REGISTER_PER_MIN", 5)),
        Refresh:  perMinute("refresh", envInt("RATE_LIMIT_REFRESH_PER_MIN", 30)),
    }
}

func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    minTTL := 5 * c.RefillInterval
    if c.TTL < minTTL { c.TTL = minTTL }
    return c
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
