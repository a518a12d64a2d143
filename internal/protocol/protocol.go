package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CtrlPrefix marks control messages on the shared channel.
const CtrlPrefix = "griduniverse_ctrl:"

// Inbound control message types.
const (
	TypeMove        = "move"
	TypeChat        = "chat"
	TypeConnect     = "connect"
	TypeChangeColor = "change_color"
	TypeDonation    = "donation"
)

// Outbound message types.
const (
	TypeState             = "state"
	TypeStop              = "stop"
	TypeNewRound          = "new_round"
	TypeDonationProcessed = "donation_processed"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

//go:embed schemas/ctrl.schema.json
var ctrlSchemaJSON string

var (
	ctrlSchemaOnce sync.Once
	ctrlSchema     *jsonschema.Schema
	ctrlSchemaErr  error
)

func compiledCtrlSchema() (*jsonschema.Schema, error) {
	ctrlSchemaOnce.Do(func() {
		ctrlSchema, ctrlSchemaErr = jsonschema.CompileString("ctrl.schema.json", ctrlSchemaJSON)
	})
	return ctrlSchema, ctrlSchemaErr
}

// ParseCtrl strips the control prefix, validates the payload against the
// control schema and decodes it. Raw text without the prefix yields
// ErrNotControl.
func ParseCtrl(raw string) (CtrlMsg, error) {
	payload, ok := strings.CutPrefix(raw, CtrlPrefix)
	if !ok {
		return CtrlMsg{}, ErrNotControl
	}
	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return CtrlMsg{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	schema, err := compiledCtrlSchema()
	if err != nil {
		return CtrlMsg{}, fmt.Errorf("ctrl schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return CtrlMsg{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	var m CtrlMsg
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return CtrlMsg{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return m, nil
}

// EncodeCtrl renders a control message with its prefix.
func EncodeCtrl(m CtrlMsg) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return CtrlPrefix + string(b), nil
}
