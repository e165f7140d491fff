package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	ChatBaseURL  string
	CallBaseURL  string
	LanguageCode string
	Speaker      string
	CountryCode  string
	StateDir     string

	// TTSProvider selects synthesis: "backend" (default) or "deepgram".
	TTSProvider   string
	DeepgramKey   string
	DeepgramModel string

	// CallProvider selects dispatch: "backend" (default) or "twilio".
	CallProvider     string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioAnswerURL  string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}

	chatBase := os.Getenv("CHAT_BASE_URL")
	if chatBase == "" {
		chatBase = "https://iomp-backbro.onrender.com"
	}
	callBase := os.Getenv("CALL_BASE_URL")
	if callBase == "" {
		callBase = "https://twilio-backend-8evv.onrender.com"
	}

	lang := os.Getenv("LANGUAGE_CODE")
	if lang == "" {
		lang = "en-IN"
	}
	speaker := os.Getenv("TTS_SPEAKER")
	if speaker == "" {
		speaker = "anushka"
	}
	country := os.Getenv("COUNTRY_CODE")
	if country == "" {
		country = "+91"
	}

	stateDir := os.Getenv("STATE_DIR")
	if stateDir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			stateDir = filepath.Join(base, "customer-service")
		} else {
			stateDir = ".customer-service"
		}
	}

	ttsProvider := os.Getenv("TTS_PROVIDER")
	if ttsProvider == "" {
		ttsProvider = "backend"
	}
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if ttsProvider == "deepgram" && deepgramKey == "" {
		log.Println("Warning: TTS_PROVIDER=deepgram but DEEPGRAM_API_KEY not set - synthesis will not work")
	}

	callProvider := os.Getenv("CALL_PROVIDER")
	if callProvider == "" {
		callProvider = "backend"
	}
	twilioSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioToken := os.Getenv("TWILIO_AUTH_TOKEN")
	twilioFrom := os.Getenv("TWILIO_FROM_NUMBER")
	if callProvider == "twilio" && (twilioSID == "" || twilioToken == "" || twilioFrom == "") {
		log.Println("Warning: CALL_PROVIDER=twilio but Twilio credentials incomplete - call dispatch will not work")
	}

	log.Printf("config: CHAT_BASE_URL=%s CALL_BASE_URL=%s", chatBase, callBase)
	return Config{
		ChatBaseURL:      chatBase,
		CallBaseURL:      callBase,
		LanguageCode:     lang,
		Speaker:          speaker,
		CountryCode:      country,
		StateDir:         stateDir,
		TTSProvider:      ttsProvider,
		DeepgramKey:      deepgramKey,
		DeepgramModel:    os.Getenv("DEEPGRAM_MODEL_ID"),
		CallProvider:     callProvider,
		TwilioAccountSID: twilioSID,
		TwilioAuthToken:  twilioToken,
		TwilioFromNumber: twilioFrom,
		TwilioAnswerURL:  os.Getenv("TWILIO_ANSWER_URL"),
	}
}
