package history

import (
	"encoding/base64"
	"fmt"
)

// DecodedPayload is the on-demand decode result for one payload. It is never
// cached across pipeline runs.
type DecodedPayload struct {
	Raw            string  `json:"raw"`
	Decoded        *string `json:"decoded"`
	ParsedJSON     any     `json:"parsed_json,omitempty"`
	Truncated      bool    `json:"truncated"`
	OriginalLength int     `json:"original_length"`
}

// DecodeWarning records one non-fatal payload decode problem. Warnings never
// escalate: a history inspection returns maximal signal even with corrupt
// payloads in the batch.
type DecodeWarning struct {
	EventID int64  `json:"event_id"`
	Index   int    `json:"index"`
	Reason  string `json:"reason"`
}

func (w DecodeWarning) String() string {
	return fmt.Sprintf("event %d payload %d: %s", w.EventID, w.Index, w.Reason)
}

// DefaultMaxLen is the decode truncation bound in characters.
const DefaultMaxLen = 4000

// Codec decodes payloads: base64, then best-effort JSON, bounded by MaxLen.
type Codec struct {
	maxLen int
}

// NewCodec returns a codec truncating decoded text to maxLen characters;
// maxLen <= 0 selects DefaultMaxLen.
func NewCodec(maxLen int) *Codec {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Codec{maxLen: maxLen}
}

// Decode processes one payload. A base64 failure yields a nil Decoded plus a
// warning reason; a JSON parse failure is not an error, the payload stays a
// plain decoded string.
func (c *Codec) Decode(raw string) (DecodedPayload, string) {
	out := DecodedPayload{Raw: raw}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// CLI output occasionally drops padding.
		data, err = base64.RawStdEncoding.DecodeString(raw)
	}
	if err != nil {
		return out, fmt.Sprintf("invalid base64: %v", err)
	}

	text := string(data)
	var parsed any
	if err := json.Unmarshal(data, &parsed); err == nil {
		if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
			text = string(pretty)
			out.ParsedJSON = parsed
		}
	}

	runes := []rune(text)
	out.OriginalLength = len(runes)
	if len(runes) > c.maxLen {
		text = string(runes[:c.maxLen])
		out.Truncated = true
	}
	out.Decoded = &text
	return out, ""
}

// DecodeBatch decodes every payload of one event. No single malformed payload
// aborts the batch.
func (c *Codec) DecodeBatch(eventID int64, payloads []Payload) ([]DecodedPayload, []DecodeWarning) {
	if len(payloads) == 0 {
		return nil, nil
	}
	decoded := make([]DecodedPayload, 0, len(payloads))
	var warnings []DecodeWarning
	for i, p := range payloads {
		d, reason := c.Decode(p.Data)
		if reason != "" {
			warnings = append(warnings, DecodeWarning{EventID: eventID, Index: i, Reason: reason})
		}
		decoded = append(decoded, d)
	}
	return decoded, warnings
}
