package assistants

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolsConfigKeepsUnknownTools(t *testing.T) {
	in := `{"calcom":{"apiKey":"k","eventId":"1","calendarName":"c","permissions":"view_only","confirmationType":"sms","enabled":true},"zapier":{"hook":"x","n":3}}`

	var tc ToolsConfig
	require.NoError(t, json.Unmarshal([]byte(in), &tc))
	require.NotNil(t, tc.Calcom)
	assert.Equal(t, "view_only", string(tc.Calcom.Permissions))
	assert.JSONEq(t, `{"hook":"x","n":3}`, string(tc.Other["zapier"]))

	out, err := json.Marshal(tc)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestToolsConfigEmptyAndNull(t *testing.T) {
	var tc ToolsConfig
	require.NoError(t, tc.Scan(nil))
	assert.Nil(t, tc.Calcom)

	require.NoError(t, tc.Scan([]byte(`{"calcom":null}`)))
	assert.Nil(t, tc.Calcom)

	v, err := ToolsConfig{}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), v)

	assert.Error(t, tc.Scan(42))
}
