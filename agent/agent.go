// Package agent holds application-wide constants shared by the sub-packages.
package agent

const (
	// DefaultAppName is used for config lookup paths and log fields.
	DefaultAppName = "pvagent"

	// DefaultConfigPath is the fallback directory searched for config.yaml.
	DefaultConfigPath = "$HOME/.config/pvagent"

	// DefaultDataDir holds the embedded database and generated artifacts.
	DefaultDataDir = ".pvagent"

	// DefaultDatabaseFile is the embedded libsql session database.
	DefaultDatabaseFile = "sessions.db"
)
