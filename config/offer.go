package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// OfferDomainConfig is the per-domain tuning of the offer workflow.
type OfferDomainConfig struct {
	TTL                 time.Duration
	NotifyOnAdminReject bool
}

// OfferConfig collects everything the offer workflow reads from the environment.
type OfferConfig struct {
	// APIBaseURL prefixes the confirmation links embedded in offer emails.
	APIBaseURL string
	// LoginURL is sent with generated credentials.
	LoginURL string

	Admission OfferDomainConfig
	Faculty   OfferDomainConfig

	ConfirmRateLimit  int
	ConfirmRateWindow time.Duration

	// TrustedProxies are the peers whose X-Forwarded-For is believed when
	// keying the confirmation rate limit. Empty trusts none.
	TrustedProxies []string
}

// LoadOfferConfig reads the offer workflow settings, falling back to the
// observed production defaults: 7 day admission offers, 14 day faculty offers.
func LoadOfferConfig() OfferConfig {
	apiBase := strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/")
	if apiBase == "" {
		apiBase = "http://localhost:8080"
	}
	appBase := strings.TrimRight(strings.TrimSpace(os.Getenv("APP_BASE_URL")), "/")
	if appBase == "" {
		appBase = "http://localhost:3000"
	}

	return OfferConfig{
		APIBaseURL: apiBase,
		LoginURL:   appBase + "/login",
		Admission: OfferDomainConfig{
			TTL:                 envDays("ADMISSION_OFFER_TTL_DAYS", 7),
			NotifyOnAdminReject: envBool("ADMISSION_NOTIFY_ON_ADMIN_REJECT", false),
		},
		Faculty: OfferDomainConfig{
			TTL:                 envDays("FACULTY_OFFER_TTL_DAYS", 14),
			NotifyOnAdminReject: envBool("FACULTY_NOTIFY_ON_ADMIN_REJECT", false),
		},
		ConfirmRateLimit:  envInt("CONFIRM_RATE_LIMIT", 20),
		ConfirmRateWindow: envDuration("CONFIRM_RATE_WINDOW_SECONDS", time.Minute),
		TrustedProxies:    envList("TRUSTED_PROXIES"),
	}
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envDays(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * 24 * time.Hour
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return time.Duration(v) * time.Second
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}
