package config

const (
	defaultConfigPath            = "~/.config/autopost/config.toml"
	defaultDataDir               = "~/.local/share/autopost"
	defaultLogDir                = "~/.local/share/autopost/logs"
	defaultSourceDir             = "~/Pictures/autopost/works"
	defaultGroupedDir            = "~/Pictures/autopost/grouped"
	defaultGraphBaseURL          = "https://graph.facebook.com"
	defaultGraphAPIVersion       = "v19.0"
	defaultBusinessAccountID     = "17841422021372550"
	defaultInstagramTimeout      = 60
	defaultContainerPollSeconds  = 5
	defaultContainerPollAttempts = 24
	defaultXAPIBaseURL           = "https://api.twitter.com"
	defaultXUploadBaseURL        = "https://upload.twitter.com"
	defaultXTimeout              = 60
	defaultR2Bucket              = "instagram-temp"
	defaultPresignMinutes        = 60
	defaultThresholdMinutes      = 10
	defaultPostDelaySeconds      = 2
	defaultMediaDelayMillis      = 500
	defaultNotifyRequestTimeout  = 10
	defaultSMTPPort              = 587
	defaultMailSubject           = "作品を投稿しました"
	defaultMailSendDelaySeconds  = 1
	defaultThumbWidth            = 600
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultTags                  = "#木彫り教室生徒作品 #木彫り #woodcarving #彫刻 #handcarved #woodart #ハンドメイド #手仕事"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			SourceDir:  defaultSourceDir,
			GroupedDir: defaultGroupedDir,
		},
		Instagram: Instagram{
			BusinessAccountID:     defaultBusinessAccountID,
			GraphBaseURL:          defaultGraphBaseURL,
			APIVersion:            defaultGraphAPIVersion,
			RequestTimeout:        defaultInstagramTimeout,
			ContainerPollSeconds:  defaultContainerPollSeconds,
			ContainerPollAttempts: defaultContainerPollAttempts,
		},
		X: X{
			APIBaseURL:     defaultXAPIBaseURL,
			UploadBaseURL:  defaultXUploadBaseURL,
			RequestTimeout: defaultXTimeout,
		},
		R2: R2{
			Bucket:         defaultR2Bucket,
			PresignMinutes: defaultPresignMinutes,
		},
		Grouping: Grouping{
			ThresholdMinutes: defaultThresholdMinutes,
		},
		Posting: Posting{
			DefaultTags:      defaultTags,
			PostDelaySeconds: defaultPostDelaySeconds,
			MediaDelayMillis: defaultMediaDelayMillis,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Posts:          true,
			Runs:           true,
			Errors:         true,
		},
		Mail: Mail{
			SMTPPort:         defaultSMTPPort,
			Subject:          defaultMailSubject,
			SendDelaySeconds: defaultMailSendDelaySeconds,
		},
		Gallery: Gallery{
			ThumbWidth: defaultThumbWidth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
