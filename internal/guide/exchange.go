package guide

// Exchange is one answered question, as recorded by chat logs and the index.
type Exchange struct {
	SessionID string  `json:"session_id"`
	Seq       uint64  `json:"seq"`
	WorldID   string  `json:"world_id"`
	TimeOfDay string  `json:"time_of_day"`
	Question  string  `json:"question"`
	Reply     string  `json:"reply"`
	Fallback  bool    `json:"fallback,omitempty"`
	Stale     bool    `json:"stale,omitempty"`
	AskedAt   int64   `json:"asked_at"`
	LatencyMS float64 `json:"latency_ms"`
}

type ExchangeRecorder interface {
	RecordExchange(e Exchange)
}

// IsFallback reports whether text is one of the fixed replies.
func IsFallback(text string) bool {
	switch text {
	case MissingKeyReply, ConnectionReply, EmptyAnswerReply:
		return true
	}
	return false
}
