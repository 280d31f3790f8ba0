package config

const EnvPrefix = "MANDIHOUSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside envconfig tags.
const (
	EnvAppEnv   = "MANDIHOUSE_APP_ENV"
	EnvPort     = "MANDIHOUSE_APP_PORT"
	EnvDBDSN    = "MANDIHOUSE_DB_DSN"
	EnvDBHost   = "MANDIHOUSE_DB_HOST"
	EnvDBUser   = "MANDIHOUSE_DB_USER"
	EnvDBName   = "MANDIHOUSE_DB_NAME"
	EnvRedisURL = "MANDIHOUSE_REDIS_URL"

	EnvGCPProjectID = "MANDIHOUSE_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic       = "MANDIHOUSE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub         = "MANDIHOUSE_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubAllocationTopic   = "MANDIHOUSE_PUBSUB_ALLOCATION_TOPIC"
	EnvPubSubAllocationSub     = "MANDIHOUSE_PUBSUB_ALLOCATION_SUBSCRIPTION"
	EnvPubSubNotificationTopic = "MANDIHOUSE_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "MANDIHOUSE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
