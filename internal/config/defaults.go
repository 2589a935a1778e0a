package config

import "runtime"

const (
	defaultConfigPath          = "~/.config/viddup/config.toml"
	defaultThreshold           = 90.0
	defaultFrames              = 20
	defaultHashSize            = 8
	defaultSkipDurationSeconds = 1
	defaultCacheFile           = ".viddup_hash_cache"
	defaultFFmpeg              = "ffmpeg"
	defaultFFprobe             = "ffprobe"
	defaultLogLevel            = "info"
	defaultLogFormat           = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Scan: Scan{
			Threshold:           defaultThreshold,
			Frames:              defaultFrames,
			HashSize:            defaultHashSize,
			Workers:             runtime.NumCPU(),
			SkipDurationSeconds: defaultSkipDurationSeconds,
			CacheFile:           defaultCacheFile,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

func (c *Config) normalize() {
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = runtime.NumCPU()
	}
	if c.Scan.CacheFile == "" {
		c.Scan.CacheFile = defaultCacheFile
	}
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
