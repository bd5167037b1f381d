package config

import (
	"crypto/rsa"
	"os"
	"strings"
	"time"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

type Config struct {
	OrganizationName string
	AppName          string
	AppPort          string
	DBUrl            string
	CORSAllowOrigin  []string

	// Empty disables every chat call with a configuration error.
	OpenAIAPIKey     string
	OpenAIModel      string
	MaxTokens        int64
	Temperature      float64
	HistoryTurns     int
	PersonaFile      string
	StampSessionEnd  bool
	StampTimeout     time.Duration
	OpenAIReqTimeout time.Duration

	// Optional. When set, bearer tokens on chat calls are verified.
	RSAPublicKey *rsa.PublicKey

	// Feature-flag snapshots
	LDFlag_StampSessionEnd bool
	LDFlag_ChatModel       string

	flags *utils.FlagSnapshot
}

const (
	OrganizationName    = utils.OrganizationName
	DefaultAppPort      = "8083"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultMaxTokens    = 500
	DefaultTemperature  = 0.7
	DefaultHistoryTurns = 6
	DefaultStampTimeout = 5 * time.Second
	LDConnectionTimeout = 5 * time.Second
	LDServerContextKind = "service"
)

// build-time override, set with -ldflags
var AppName = "chat-service"

func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	if err := utils.LoadDotEnv(); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load .env file")
	}
	if err := utils.LoadSecretsFromBWS(); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load secrets from Bitwarden")
	}

	//----------------------------------------------------------------------
	// Runtime environment vars
	//----------------------------------------------------------------------
	dbUrl := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbUrl == "" {
		utils.Logger.Fatal("DATABASE_URL env var is missing")
	}

	openAIKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if openAIKey == "" {
		utils.Logger.Error("OPENAI_API_KEY is missing; every chat request will fail until it is set")
	}

	var pub *rsa.PublicKey
	if raw := os.Getenv("RSA_PUBLIC_KEY_BASE64"); raw != "" {
		var err error
		if pub, err = utils.ParseRSAPublicKeyBase64(raw); err != nil {
			utils.Logger.WithError(err).Fatal("Failed to parse RSA_PUBLIC_KEY_BASE64")
		}
	} else {
		utils.Logger.Warn("RSA_PUBLIC_KEY_BASE64 not set; chat tokens will not be checked")
	}

	//----------------------------------------------------------------------
	// LaunchDarkly (optional)
	//----------------------------------------------------------------------
	var flags *utils.FlagSnapshot
	if sdkKey := os.Getenv("LD_SDK_KEY"); sdkKey != "" {
		var err error
		flags, err = utils.OpenFlagSnapshot(sdkKey, LDServerContextKind, AppName, LDConnectionTimeout)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to initialize LaunchDarkly client")
		}
	}

	stampDefault := utils.EnvBool("CHAT_STAMP_SESSION_END", true)
	model := utils.EnvOr("OPENAI_MODEL", DefaultOpenAIModel)

	cfg := &Config{
		OrganizationName: OrganizationName,
		AppName:          AppName,
		AppPort:          utils.EnvOr("APP_PORT", DefaultAppPort),
		DBUrl:            dbUrl,
		CORSAllowOrigin:  strings.Split(utils.EnvOr("CORS_ALLOWED_ORIGINS", utils.CORSAllowedOriginAny), ","),

		OpenAIAPIKey:     openAIKey,
		MaxTokens:        int64(utils.EnvInt("OPENAI_MAX_TOKENS", DefaultMaxTokens)),
		Temperature:      utils.EnvFloat("OPENAI_TEMPERATURE", DefaultTemperature),
		HistoryTurns:     utils.EnvInt("CHAT_HISTORY_TURNS", DefaultHistoryTurns),
		PersonaFile:      os.Getenv("CHAT_PERSONA_FILE"),
		StampTimeout:     DefaultStampTimeout,
		OpenAIReqTimeout: utils.OpenAIRequestTimeout,

		RSAPublicKey: pub,

		LDFlag_StampSessionEnd: flags.Bool("chat_stamp_session_end", stampDefault),
		LDFlag_ChatModel:       flags.String("chat_model", model),

		flags: flags,
	}
	cfg.StampSessionEnd = cfg.LDFlag_StampSessionEnd
	cfg.OpenAIModel = cfg.LDFlag_ChatModel

	utils.Logger.Debugf("Chat model: %s, max tokens: %d, history turns: %d",
		cfg.OpenAIModel, cfg.MaxTokens, cfg.HistoryTurns)
	return cfg
}

func (c *Config) Close() {
	c.flags.Close()
}
