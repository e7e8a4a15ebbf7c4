package config

const (
	defaultDataDir              = "~/.local/share/cuebridge"
	defaultLogDir               = "~/.local/share/cuebridge/logs"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultRelayBind            = "127.0.0.1:7610"
	defaultTranscriptURL        = "https://raw.githubusercontent.com/julianna-langston/ScreenReaderDescription/main/transcripts/{domain}/{id}.json"
	defaultRemoteTimeoutSeconds = 10
	defaultLeadInSeconds        = 3
	defaultSeekStepSeconds      = 5
	defaultSeekFineStepSeconds  = 1
	defaultMoveStepSeconds      = 1
	defaultMoveFineStepSeconds  = 0.1
	defaultLanguage             = "en-US"
	socketFileName              = "cuebridge.sock"
	databaseFileName            = "cuebridge.db"
	lockFileName                = "cuebridge.lock"
)

var defaultDomains = []string{"youtube", "crunchyroll", "hidive", "emby", "disney"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Relay: Relay{
			Bind: defaultRelayBind,
		},
		Remote: Remote{
			TranscriptURLTemplate: defaultTranscriptURL,
			TimeoutSeconds:        defaultRemoteTimeoutSeconds,
			Domains:               append([]string(nil), defaultDomains...),
		},
		Playback: Playback{
			LeadInSeconds:       defaultLeadInSeconds,
			SeekStepSeconds:     defaultSeekStepSeconds,
			SeekFineStepSeconds: defaultSeekFineStepSeconds,
			MoveStepSeconds:     defaultMoveStepSeconds,
			MoveFineStepSeconds: defaultMoveFineStepSeconds,
		},
		Editor: Editor{
			ShowIndicator:   true,
			DefaultLanguage: defaultLanguage,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
