package config

// SkipMigrations disables AutoMigrate on startup (run `gemctl migrate` as a job instead).
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	return BoolFromEnv("SKIP_MIGRATIONS")
}

// OpenSignUp allows self sign-up once an admin exists. The very first profile
// can always sign up and becomes the admin.
//
// Set via env:
// - OPEN_SIGN_UP=true
func OpenSignUp() bool {
	return BoolFromEnv("OPEN_SIGN_UP")
}

// RateLimitEnabled turns on the redis request limiter.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func RateLimitEnabled() bool {
	return BoolFromEnv("RATE_LIMIT_ENABLED")
}

// IsProduction reports GO_ENV=production.
func IsProduction() bool {
	return StringFromEnv("GO_ENV", "") == "production"
}
