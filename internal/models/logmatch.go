package models

// LogPatternMatch aggregates occurrences of one error pattern within a log
// group over a single evaluation window.
type LogPatternMatch struct {
	Pattern  string `json:"pattern"`
	LogGroup string `json:"log_group"`
	Count    int    `json:"count"`
	// SampleMessage is the first matching line seen for this pattern.
	SampleMessage string `json:"sample_message"`
}
