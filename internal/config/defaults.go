package config

const (
	defaultQueueLimit           = 10
	defaultIntervalMinutes      = 5
	defaultGitHubAPIURL         = "https://api.github.com"
	defaultGitHubTimeoutSeconds = 30
	defaultGitHubRequestsPerSec = 5.0
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAgentLogFile         = "~/.local/state/mergeq/agent.log"
	defaultConfigRelativePath   = "~/.config/mergeq/config.toml"
)

// Default returns a Config populated with repository defaults. Only merge
// notifications are enabled out of the box.
func Default() Config {
	return Config{
		Queue: Queue{
			Limit:             defaultQueueLimit,
			IntervalInMinutes: defaultIntervalMinutes,
		},
		Notifier: Notifier{
			Merge: &Notification{Enabled: true},
		},
		GitHub: GitHub{
			APIURL:            defaultGitHubAPIURL,
			RequestTimeout:    defaultGitHubTimeoutSeconds,
			RequestsPerSecond: defaultGitHubRequestsPerSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			File:   defaultAgentLogFile,
		},
	}
}
