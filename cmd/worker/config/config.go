package config

type WorkerConfig struct {
	Concurrency              int `yaml:"concurrency"`              // 并发评测数
	QueueSize                int `yaml:"queueSize"`                // 等待队列长度
	XAutoClaimTimeoutMinutes int `yaml:"xAutoClaimTimeoutMinutes"` // 超时未 ack 的任务重新认领
}

func (WorkerConfig) Key() string {
	return "worker"
}
