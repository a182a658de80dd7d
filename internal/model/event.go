package model

// RelayEvent 描述一次中继调用的结果，发布到 Kafka 供审计使用。不包含消息内容。
type RelayEvent struct {
	RequestID    string    `json:"request_id"`
	MessageCount int       `json:"message_count"`
	Status       int       `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	CacheHit     bool      `json:"cache_hit"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    LocalTime `json:"timestamp"`
}
