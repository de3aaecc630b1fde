package assistants

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"assistant-console/internal/calcom"
)

const toolCalcom = "calcom"

// ToolsConfig is the per-assistant tools map. Cal.com is typed; any other tool
// is kept as raw JSON and written back untouched.
type ToolsConfig struct {
	Calcom *calcom.Settings
	Other  map[string]json.RawMessage
}

func (t ToolsConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(t.Other)+1)
	for k, v := range t.Other {
		out[k] = v
	}
	if t.Calcom != nil {
		raw, err := json.Marshal(t.Calcom)
		if err != nil {
			return nil, err
		}
		out[toolCalcom] = raw
	}
	return json.Marshal(out)
}

func (t *ToolsConfig) UnmarshalJSON(data []byte) error {
	*t = ToolsConfig{}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tools config: %w", err)
	}
	for k, v := range raw {
		if k != toolCalcom {
			if t.Other == nil {
				t.Other = map[string]json.RawMessage{}
			}
			t.Other[k] = v
			continue
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		var s calcom.Settings
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("tools config calcom: %w", err)
		}
		t.Calcom = &s
	}
	return nil
}

// Value stores the config as JSONB.
func (t ToolsConfig) Value() (driver.Value, error) {
	return t.MarshalJSON()
}

func (t *ToolsConfig) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = ToolsConfig{}
		return nil
	case []byte:
		return t.UnmarshalJSON(v)
	case string:
		return t.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("tools config: unsupported scan type %T", src)
	}
}
