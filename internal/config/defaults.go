package config

const (
	defaultDataDir = "~/.local/share/cadence"
	defaultLogDir  = "~/.local/share/cadence/logs"
	defaultAPIBind = "127.0.0.1:7410"

	defaultExtractor            = ExtractorCepstral
	defaultCepstralCoefficients = 26
	defaultFrameSize            = 2048
	defaultHopSize              = 512

	defaultStrategy          = StrategyNearestReference
	defaultModelPath         = "~/.local/share/cadence/model/classifier.gob"
	defaultModelRetryBase    = 1
	defaultModelRetryMax     = 30
	defaultCorpusRefreshSecs = 300

	defaultPollInterval       = 2
	defaultMaxIdleBackoff     = 30
	defaultErrorRetryInterval = 5
	defaultReconnectBase      = 1
	defaultReconnectMax       = 10
	defaultConnectTimeout     = 2
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Known values for Analysis.Extractor.
const (
	ExtractorSpectral = "spectral"
	ExtractorCepstral = "cepstral"
)

// Known values for Classifier.Strategy.
const (
	StrategyNearestReference = "nearest-reference"
	StrategyTrainedModel     = "trained-model"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Analysis: Analysis{
			Extractor:            defaultExtractor,
			CepstralCoefficients: defaultCepstralCoefficients,
			FrameSize:            defaultFrameSize,
			HopSize:              defaultHopSize,
		},
		Classifier: Classifier{
			Strategy:          defaultStrategy,
			ModelPath:         defaultModelPath,
			ModelRetryBase:    defaultModelRetryBase,
			ModelRetryMax:     defaultModelRetryMax,
			CorpusRefreshSecs: defaultCorpusRefreshSecs,
		},
		Worker: Worker{
			PollInterval:       defaultPollInterval,
			MaxIdleBackoff:     defaultMaxIdleBackoff,
			ErrorRetryInterval: defaultErrorRetryInterval,
			ReconnectBase:      defaultReconnectBase,
			ReconnectMax:       defaultReconnectMax,
			ConnectTimeout:     defaultConnectTimeout,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
