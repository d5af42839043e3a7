package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// OpenAI realtime endpoint
	OpenAIKey   string
	OpenAIModel string
	OpenAIVoice string

	// Public wss:// URL Twilio connects back to for media streaming.
	PublicWSSURL string

	// Twilio REST credentials (webhook signature checks and hangups).
	TwilioAccountSID string
	TwilioAuthToken  string

	// Frappe backend for job lookups.
	FrappeBaseURL   string
	FrappeAPIKey    string
	FrappeAPISecret string

	// BargeDebounce is how long caller speech must persist before an
	// in-progress response is interrupted.
	BargeDebounce time.Duration

	// Server-side voice activity detection parameters.
	VADThreshold         float64
	VADPrefixPaddingMs   int
	VADSilenceDurationMs int
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using default %v", key, v, def)
		return def
	}
	return f
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - media sessions will be rejected")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-realtime"
	}
	voice := os.Getenv("OPENAI_VOICE")
	if voice == "" {
		voice = "sage"
	}

	publicWSS := os.Getenv("PUBLIC_WSS_URL")
	if publicWSS == "" {
		log.Println("Warning: PUBLIC_WSS_URL not set - /twilio/voice webhook will fail")
	}

	twilioSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioToken := os.Getenv("TWILIO_AUTH_TOKEN")
	if twilioSID == "" || twilioToken == "" {
		log.Println("Warning: Twilio credentials not set - end_call tool will not work")
	}

	frappeURL := os.Getenv("FRAPPE_BASE_URL")
	if frappeURL == "" {
		frappeURL = "https://app.midwestsolutions.com"
	}
	frappeKey := os.Getenv("FRAPPE_API_KEY")
	frappeSecret := os.Getenv("FRAPPE_API_SECRET")
	if frappeKey == "" || frappeSecret == "" {
		log.Println("Warning: Frappe credentials not set - job lookup tools will not work")
	}

	debounce := time.Duration(envInt("BARGE_DEBOUNCE_MS", 180)) * time.Millisecond

	log.Printf("config: HTTP_ADDRESS=%s model=%s", addr, model)
	return Config{
		HTTPAddress:          addr,
		OpenAIKey:            openAIKey,
		OpenAIModel:          model,
		OpenAIVoice:          voice,
		PublicWSSURL:         publicWSS,
		TwilioAccountSID:     twilioSID,
		TwilioAuthToken:      twilioToken,
		FrappeBaseURL:        frappeURL,
		FrappeAPIKey:         frappeKey,
		FrappeAPISecret:      frappeSecret,
		BargeDebounce:        debounce,
		VADThreshold:         envFloat("VAD_THRESHOLD", 0.5),
		VADPrefixPaddingMs:   envInt("VAD_PREFIX_PADDING_MS", 300),
		VADSilenceDurationMs: envInt("VAD_SILENCE_DURATION_MS", 500),
	}
}
