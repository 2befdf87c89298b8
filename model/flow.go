package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type BlockKind string

const (
	BLOCK_TRIGGER       BlockKind = "trigger"
	BLOCK_DECISION      BlockKind = "decision"
	BLOCK_ASSIGNMENT    BlockKind = "assignment"
	BLOCK_CREATE_RECORD BlockKind = "create_record"
	BLOCK_UPDATE_RECORD BlockKind = "update_record"
	BLOCK_DELETE_RECORD BlockKind = "delete_record"
	BLOCK_EMAIL         BlockKind = "email"
	BLOCK_NOTIFICATION  BlockKind = "notification"
	BLOCK_WAIT          BlockKind = "wait"
	BLOCK_LOOP          BlockKind = "loop"
	BLOCK_SCREEN        BlockKind = "screen"
	BLOCK_API_CALL      BlockKind = "api_call"
)

var BlockKinds = []BlockKind{
	BLOCK_TRIGGER, BLOCK_DECISION, BLOCK_ASSIGNMENT, BLOCK_CREATE_RECORD, BLOCK_UPDATE_RECORD,
	BLOCK_DELETE_RECORD, BLOCK_EMAIL, BLOCK_NOTIFICATION, BLOCK_WAIT, BLOCK_LOOP, BLOCK_SCREEN,
	BLOCK_API_CALL,
}

func (k BlockKind) Valid() bool {
	for _, known := range BlockKinds {
		if k == known {
			return true
		}
	}
	return false
}

type Flow struct {
	Id             int64        `json:"id"`
	OrganizationId int64        `json:"organizationId"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Active         bool         `json:"active"`
	Blocks         []Block      `json:"blocks"`
	Connections    []Connection `json:"connections"`
}

// Config stays raw; each block handler decodes it into its own config struct.
type Block struct {
	Id     string          `json:"id"`
	Kind   BlockKind       `json:"kind"`
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

type Connection struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Label *string `json:"label,omitempty"`
}

func (c Connection) Labeled() bool {
	return c.Label != nil && *c.Label != ""
}

func (c Connection) HasLabel(label string) bool {
	return c.Label != nil && *c.Label == label
}

func (f *Flow) TriggerBlock() (*Block, bool) {
	for i := range f.Blocks {
		if f.Blocks[i].Kind == BLOCK_TRIGGER {
			return &f.Blocks[i], true
		}
	}
	return nil, false
}

func (f *Flow) Block(id string) (*Block, bool) {
	for i := range f.Blocks {
		if f.Blocks[i].Id == id {
			return &f.Blocks[i], true
		}
	}
	return nil, false
}

func (f *Flow) Outgoing(blockId string) []Connection {
	var out []Connection
	for _, c := range f.Connections {
		if c.From == blockId {
			out = append(out, c)
		}
	}
	return out
}

func (f *Flow) Validate() error {
	seen := make(map[string]bool, len(f.Blocks))
	triggers := 0
	for _, b := range f.Blocks {
		if b.Id == "" {
			return fmt.Errorf("flow %q has a block without id", f.Name)
		}
		if seen[b.Id] {
			return fmt.Errorf("block id %s is duplicate", b.Id)
		}
		seen[b.Id] = true
		if !b.Kind.Valid() {
			return fmt.Errorf("block %s has unknown kind %q", b.Id, b.Kind)
		}
		if b.Kind == BLOCK_TRIGGER {
			triggers++
		}
		if len(b.Config) > 0 && !json.Valid(b.Config) {
			return fmt.Errorf("block %s config is not valid json", b.Id)
		}
	}
	if triggers > 1 {
		return fmt.Errorf("flow %q has %d trigger blocks, at most one allowed", f.Name, triggers)
	}
	for _, c := range f.Connections {
		if !seen[c.From] {
			return fmt.Errorf("connection from unknown block %s", c.From)
		}
		if !seen[c.To] {
			return fmt.Errorf("connection to unknown block %s", c.To)
		}
	}
	return nil
}

type TriggerConfig struct {
	ObjectApiName string      `json:"objectApiName"`
	Conditions    []Condition `json:"conditions"`
	Events        []string    `json:"events,omitempty"`
}

type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

type DecisionOutcome struct {
	Label      string      `json:"label"`
	Conditions []Condition `json:"conditions"`
}

type DecisionConfig struct {
	Outcomes []DecisionOutcome `json:"outcomes"`
}

type Assignment struct {
	Variable string `json:"variable"`
	Value    any    `json:"value"`
}

type AssignmentConfig struct {
	Assignments []Assignment `json:"assignments"`
}

type RecordConfig struct {
	ObjectApiName any            `json:"objectApiName"`
	RecordId      any            `json:"recordId"`
	FieldMappings map[string]any `json:"fieldMappings"`
	// OutputVariable, when set on create_record, receives the new record's id.
	OutputVariable string `json:"outputVariable,omitempty"`
}

type WaitConfig struct {
	DurationSeconds any `json:"durationSeconds"`
}

// ValidateImport validates a flow that is stored for the first time. Its id
// must be left to the store.
func (f *Flow) ValidateImport() error {
	if f.Id != 0 {
		return fmt.Errorf("flow %q must not carry an id, got %d", f.Name, f.Id)
	}
	return f.Validate()
}

// EncodeJSON renders the flow like json.Marshal does, except that block
// configs are copied byte for byte instead of being compacted and escaped.
func (f *Flow) EncodeJSON() ([]byte, error) {
	var w jsonWriter
	w.raw(`{"id":`)
	w.value(f.Id)
	w.raw(`,"organizationId":`)
	w.value(f.OrganizationId)
	w.raw(`,"name":`)
	w.value(f.Name)
	if f.Description != "" {
		w.raw(`,"description":`)
		w.value(f.Description)
	}
	w.raw(`,"active":`)
	w.value(f.Active)
	w.raw(`,"blocks":`)
	w.blocks(f.Blocks)
	w.raw(`,"connections":`)
	w.value(f.Connections)
	w.raw(`}`)
	return w.bytes()
}

// EncodeBlocks renders blocks as a JSON array with every config copied byte
// for byte.
func EncodeBlocks(blocks []Block) ([]byte, error) {
	var w jsonWriter
	w.blocks(blocks)
	return w.bytes()
}

// jsonWriter keeps the first error and ignores writes after it.
type jsonWriter struct {
	buf bytes.Buffer
	err error
}

func (w *jsonWriter) raw(s string) {
	if w.err == nil {
		w.buf.WriteString(s)
	}
}

func (w *jsonWriter) value(v any) {
	if w.err != nil {
		return
	}
	enc := json.NewEncoder(&w.buf)
	enc.SetEscapeHTML(false)
	if w.err = enc.Encode(v); w.err == nil {
		// Encode ends every value with a newline
		w.buf.Truncate(w.buf.Len() - 1)
	}
}

func (w *jsonWriter) blocks(blocks []Block) {
	if blocks == nil {
		w.raw("null")
		return
	}
	w.raw("[")
	for i, b := range blocks {
		if i > 0 {
			w.raw(",")
		}
		w.raw(`{"id":`)
		w.value(b.Id)
		w.raw(`,"kind":`)
		w.value(b.Kind)
		w.raw(`,"name":`)
		w.value(b.Name)
		w.raw(`,"config":`)
		switch {
		case len(b.Config) == 0:
			w.raw("null")
		case !json.Valid(b.Config):
			if w.err == nil {
				w.err = fmt.Errorf("block %s config is not valid json", b.Id)
			}
		default:
			w.raw(string(b.Config))
		}
		w.raw("}")
	}
	w.raw("]")
}

func (w *jsonWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
