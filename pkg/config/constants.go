package config

// EnvPrefix is passed to envconfig; explicit tags on every field keep the
// variable names stable regardless of struct layout.
const EnvPrefix = "CODIGO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "CODIGO_APP_ENV"
	EnvPort     = "CODIGO_APP_PORT"
	EnvLogLevel = "CODIGO_LOG_LEVEL"

	EnvDBDSN    = "CODIGO_DB_DSN"
	EnvDBHost   = "CODIGO_DB_HOST"
	EnvDBPort   = "CODIGO_DB_PORT"
	EnvDBUser   = "CODIGO_DB_USER"
	EnvDBName   = "CODIGO_DB_NAME"
	EnvRedisURL = "CODIGO_REDIS_URL"

	EnvGCPProjectID = "CODIGO_GCP_PROJECT_ID"

	EnvPubSubEnrollmentTopic = "CODIGO_PUBSUB_ENROLLMENT_TOPIC"
	EnvPubSubEnrollmentSub   = "CODIGO_PUBSUB_ENROLLMENT_SUBSCRIPTION"
	EnvPubSubPaymentTopic    = "CODIGO_PUBSUB_PAYMENT_TOPIC"
	EnvPubSubPaymentSub      = "CODIGO_PUBSUB_PAYMENT_SUBSCRIPTION"
	EnvPubSubNotificationSub = "CODIGO_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvStripeAPIKey        = "CODIGO_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "CODIGO_STRIPE_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
