package env

import (
	"fmt"
	"os"
	"strings"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	UserSecretKey    = "USER_SECRET"
	SessionRedisURL  = "SESSION_REDIS_URL"
	SessionRedisPass = "SESSION_REDIS_PASS"
	SessionBackend   = "SESSION_BACKEND"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	ChatAPIURL       = "CHAT_API_URL"
	ChatPublicURL    = "CHAT_PUBLIC_URL"
	AuthAPIURL       = "AUTH_API_URL"
	WebURL           = "WEB_URL"
	LogLevel         = "LOG_LEVEL"
	ListenAddr       = "LISTEN_ADDR"
	SessionID        = "CHAT_SESSION_ID"
)

// Require reports every listed variable that is unset, in one error.
func Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("env: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
