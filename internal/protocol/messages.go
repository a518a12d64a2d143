package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID accepts either a JSON string or a JSON number; participants arrive as
// integers from the recruiter and as strings from observers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Participant reports whether the id names a recruited participant rather
// than a spectator. Participant ids are integers.
func (id ID) Participant() bool {
	if id == "" || id == "spectator" {
		return false
	}
	_, err := strconv.Atoi(string(id))
	return err == nil
}

// Flag is a boolean that also accepts the strings "true" and "false".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case bool:
		*f = Flag(x)
	case string:
		ok, err := strconv.ParseBool(x)
		if err != nil {
			return err
		}
		*f = Flag(ok)
	default:
		*f = false
	}
	return nil
}

// CtrlMsg is the union of inbound control messages; only the fields of the
// given Type are set.
type CtrlMsg struct {
	Type     string `json:"type"`
	PlayerID ID     `json:"player_id,omitempty"`

	// move
	Move string `json:"move,omitempty"`

	// chat
	Contents  string `json:"contents,omitempty"`
	Broadcast Flag   `json:"broadcast,omitempty"`

	// change_color
	Color string `json:"color,omitempty"`

	// donation
	DonorID     ID      `json:"donor_id,omitempty"`
	RecipientID ID      `json:"recipient_id,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
}

// StateMsg carries a full grid snapshot (or a delta) to observers.
type StateMsg struct {
	Type string          `json:"type"`
	Grid json.RawMessage `json:"grid"`
}

type StopMsg struct {
	Type string `json:"type"`
}

type NewRoundMsg struct {
	Type  string `json:"type"`
	Round int    `json:"round"`
}

type DonationProcessedMsg struct {
	Type        string   `json:"type"`
	DonorID     string   `json:"donor_id"`
	RecipientID string   `json:"recipient_id"`
	Amount      float64  `json:"amount"`
	Share       float64  `json:"share"`
	Recipients  []string `json:"recipients"`
}

// ChatMsg is a chat line republished to observers.
type ChatMsg struct {
	Type      string `json:"type"`
	PlayerID  string `json:"player_id"`
	Contents  string `json:"contents"`
	Broadcast bool   `json:"broadcast"`
	Timestamp string `json:"timestamp"`
}
