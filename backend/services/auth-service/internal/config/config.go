package config

import (
	"crypto/rsa"
	"os"
	"strings"
	"time"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// Config holds all auth-service configuration, including secrets and the
// LaunchDarkly flag snapshot.
type Config struct {
	OrganizationName string
	AppName          string
	AppPort          string
	AppDomain        string
	DBUrl            string
	AMQPUrl          string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromPhone  string

	OTPExpiry       time.Duration
	AccessTokenTTL  time.Duration
	RSAPrivateKey   *rsa.PrivateKey
	RSAPublicKey    *rsa.PublicKey
	CORSAllowOrigin []string

	SMSLimitPerIPPerHour     int
	SMSLimitPerNumberPerHour int
	GlobalSMSLimitPerHour    int
	RateLimitWindow          time.Duration

	// Static flags fetched once from LaunchDarkly (defaults when LD is off)
	LDFlag_ValidatePhoneWithTwilio bool
	LDFlag_AcceptFakePhones        bool
	LDFlag_ShortOTPTTL             bool
	LDFlag_PublishEvents           bool

	flags *utils.FlagSnapshot
}

// Constants for time-based configuration defaults.
const (
	OrganizationName                = utils.OrganizationName
	DefaultAppPort                  = "8082"
	DefaultOTPExpiry                = 10 * time.Minute
	TestShortOTPExpiry              = 3 * time.Second
	DefaultAccessTokenTTL           = 15 * time.Minute
	LDConnectionTimeout             = 5 * time.Second
	DefaultSMSLimitPerIPPerHour     = 20
	DefaultSMSLimitPerNumberPerHour = 5
	DefaultGlobalSMSLimitPerHour    = 1000
	DefaultRateLimitWindow          = 1 * time.Hour
	LDServerContextKind             = "service"
)

// AppName may be overridden with ldflags at build time.
var AppName = "auth-service"

// LoadConfig reads the environment (after .env and Bitwarden overlays) and
// returns a *Config. Missing required settings are fatal.
func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	if err := utils.LoadDotEnv(); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load .env file")
	}
	if err := utils.LoadSecretsFromBWS(); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load secrets from Bitwarden")
	}

	//----------------------------------------------------------------------
	// Required settings.
	//----------------------------------------------------------------------
	dbUrl := requireEnv("DATABASE_URL")
	twilioAccountSID := requireEnv("TWILIO_ACCOUNT_SID")
	twilioAuthToken := requireEnv("TWILIO_AUTH_TOKEN")
	twilioFromPhone := requireEnv("TWILIO_FROM_PHONE")
	appDomain := requireEnv("APP_DOMAIN")

	privateKey, err := utils.ParseRSAPrivateKeyBase64(requireEnv("RSA_PRIVATE_KEY_BASE64"))
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA_PRIVATE_KEY_BASE64")
	}
	publicKey, err := utils.ParseRSAPublicKeyBase64(requireEnv("RSA_PUBLIC_KEY_BASE64"))
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA_PUBLIC_KEY_BASE64")
	}

	//----------------------------------------------------------------------
	// LaunchDarkly (optional).
	//----------------------------------------------------------------------
	var flags *utils.FlagSnapshot
	if sdkKey := os.Getenv("LD_SDK_KEY"); sdkKey != "" {
		flags, err = utils.OpenFlagSnapshot(sdkKey, LDServerContextKind, AppName, LDConnectionTimeout)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to initialize LaunchDarkly client")
		}
	} else {
		utils.Logger.Info("LD_SDK_KEY not set; using default flag values")
	}

	cfg := &Config{
		OrganizationName: OrganizationName,
		AppName:          AppName,
		AppPort:          utils.EnvOr("APP_PORT", DefaultAppPort),
		AppDomain:        strings.ToLower(appDomain),
		DBUrl:            dbUrl,
		AMQPUrl:          os.Getenv("AMQP_URL"),

		TwilioAccountSID: twilioAccountSID,
		TwilioAuthToken:  twilioAuthToken,
		TwilioFromPhone:  twilioFromPhone,

		OTPExpiry:       utils.EnvDuration("OTP_EXPIRY", DefaultOTPExpiry),
		AccessTokenTTL:  utils.EnvDuration("ACCESS_TOKEN_TTL", DefaultAccessTokenTTL),
		RSAPrivateKey:   privateKey,
		RSAPublicKey:    publicKey,
		CORSAllowOrigin: splitOrigins(utils.EnvOr("CORS_ALLOWED_ORIGINS", utils.CORSAllowedOriginAny)),

		SMSLimitPerIPPerHour:     utils.EnvInt("SMS_LIMIT_PER_IP_PER_HOUR", DefaultSMSLimitPerIPPerHour),
		SMSLimitPerNumberPerHour: utils.EnvInt("SMS_LIMIT_PER_NUMBER_PER_HOUR", DefaultSMSLimitPerNumberPerHour),
		GlobalSMSLimitPerHour:    utils.EnvInt("GLOBAL_SMS_LIMIT_PER_HOUR", DefaultGlobalSMSLimitPerHour),
		RateLimitWindow:          DefaultRateLimitWindow,

		LDFlag_ValidatePhoneWithTwilio: flags.Bool("validate_phone_with_twilio", false),
		LDFlag_AcceptFakePhones:        flags.Bool("accept_fake_phones", false),
		LDFlag_ShortOTPTTL:             flags.Bool("short_otp_ttl", false),
		LDFlag_PublishEvents:           flags.Bool("publish_auth_events", true),

		flags: flags,
	}

	if cfg.LDFlag_ShortOTPTTL {
		cfg.OTPExpiry = TestShortOTPExpiry
	}

	utils.Logger.Debugf("OTP expiry: %v, access token TTL: %v", cfg.OTPExpiry, cfg.AccessTokenTTL)
	return cfg
}

// Close cleans up any resources used by Config (e.g., the LD client).
func (c *Config) Close() {
	c.flags.Close()
}

func requireEnv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
