package queue

import (
	"time"

	"gopkg.in/ini.v1"
)

type Config struct {
	PollInterval        time.Duration // 空闲时轮询间隔
	ProgressInterval    time.Duration // 进度写库的最小间隔
	FailQueuedOnStartup bool          // 启动时把遗留的 queued 任务也置为 failed
}

var queueCfg = Config{
	PollInterval:        2 * time.Second,
	ProgressInterval:    500 * time.Millisecond,
	FailQueuedOnStartup: true,
}

// 读取 [queue] 段
func LoadCfg(file *ini.File) {
	section := file.Section("queue")
	queueCfg = Config{
		PollInterval:        section.Key("PollInterval").MustDuration(2 * time.Second),
		ProgressInterval:    section.Key("ProgressInterval").MustDuration(500 * time.Millisecond),
		FailQueuedOnStartup: section.Key("FailQueuedOnStartup").MustBool(true),
	}
}

func DefaultConfig() Config {
	return queueCfg
}
