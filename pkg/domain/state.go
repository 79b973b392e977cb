package domain

// Status はリクエストオーケストレーターの状態です。
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText は JSON 出力で状態名を使うためのものです。
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RequestState はオーケストレーターが公開する一時的な状態です。永続化されません。
type RequestState struct {
	Status     Status            `json:"status"`
	IsLoading  bool              `json:"isLoading"`
	Error      string            `json:"error,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	LastResult *GenerationRecord `json:"lastResult,omitempty"`
	Collection Collection        `json:"collection,omitempty"`
}
