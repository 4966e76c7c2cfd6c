package domain

import "time"

// DialSpec configures the outbound leg a node originates after input collection.
type DialSpec struct {
	// Endpoint is a technology string ("PJSIP/alice") or a SIP URI ("sip:alice@pbx").
	Endpoint string `yaml:"endpoint"`
	// App is the stasis application the dialed channel is routed to.
	App      string `yaml:"app"`
	CallerID string `yaml:"caller_id"`

	// RecordingFile enables a bridge recording once the dialed leg answers.
	RecordingFile   string `yaml:"recording_file"`
	RecordingFormat string `yaml:"recording_format"`

	// Timeout is the ring timeout handed to the originate command.
	Timeout time.Duration `yaml:"timeout"`

	// HangupDigit, pressed by the caller, tears the dialed leg down.
	HangupDigit string `yaml:"hangup_digit"`

	// AnswerSound is played to the dialed leg when it answers.
	AnswerSound string `yaml:"answer_sound"`
}

// RecordSpec configures a recording on the call's bridge.
type RecordSpec struct {
	Name        string        `yaml:"name"`
	Format      string        `yaml:"format"`
	MaxDuration time.Duration `yaml:"max_duration"`
	MaxSilence  time.Duration `yaml:"max_silence"`
	Beep        bool          `yaml:"beep"`
	// TerminateOn is the DTMF that ends the recording: "none", "any", "*", "#".
	TerminateOn string `yaml:"terminate_on"`
	// IfExists is the policy for an existing file: "fail", "overwrite", "append".
	IfExists string `yaml:"if_exists"`
}

// DefaultRecordingFormat is used when a spec leaves the format empty.
const DefaultRecordingFormat = "wav"

// OriginateRequest is the command that creates a new outbound channel.
type OriginateRequest struct {
	ChannelID string
	Endpoint  string
	App       string
	AppArgs   string
	CallerID  string
	Timeout   time.Duration
}

// Visit is one finished node in the trail of a call.
type Visit struct {
	Node     string        `json:"node"`
	State    string        `json:"state"`
	Input    string        `json:"input,omitempty"`
	Attempts int           `json:"attempts"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
}
