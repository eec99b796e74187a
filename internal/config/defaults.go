package config

const (
	defaultDataDir = "~/.local/share/cadenza/data"
	defaultLogDir  = "~/.local/share/cadenza/logs"
	defaultAPIBind = "127.0.0.1:7419"

	defaultChainEpsilon            = 0.01
	defaultOverclaimEpsilon        = 0.1
	defaultOverclaimMediumExcess   = 5
	defaultOverclaimHighExcess     = 20
	defaultOverclaimCriticalExcess = 50
	defaultTitleSimilarityFloor    = 0.6

	defaultScanBatchSize    = 25
	defaultScanLeaseTTL     = 120
	defaultScanPageSize     = 200
	defaultStatsCacheSecond = 30

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Validation: Validation{
			ChainEpsilon:            defaultChainEpsilon,
			OverclaimEpsilon:        defaultOverclaimEpsilon,
			OverclaimMediumExcess:   defaultOverclaimMediumExcess,
			OverclaimHighExcess:     defaultOverclaimHighExcess,
			OverclaimCriticalExcess: defaultOverclaimCriticalExcess,
			TitleSimilarityFloor:    defaultTitleSimilarityFloor,
		},
		Scan: Scan{
			BatchSize:       defaultScanBatchSize,
			WorksPerSecond:  0,
			LeaseTTLSeconds: defaultScanLeaseTTL,
			PageSize:        defaultScanPageSize,
		},
		API: API{
			StatsCacheSeconds: defaultStatsCacheSecond,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
