// Package constants holds shared domain constants.
package constants

const (
	// PubSubProviderLocal selects the local HTTP push publisher used in development.
	PubSubProviderLocal = "local"
	// PubSubProviderGoogle selects the Google Cloud Pub/Sub publisher.
	PubSubProviderGoogle = "google"
)

const (
	// EnvDevelop is the development environment name; push-auth verification
	// is skipped there.
	EnvDevelop = "develop"
)
