package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/gcursor/internal/executor"
)

type fakeProvider struct {
	response string
	err      error
	block    bool
	calls    int
	prompts  []string
}

func (p *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls++
	p.prompts = append(p.prompts, prompt)
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.response, p.err
}

func TestTranslate_ClickThenWait(t *testing.T) {
	provider := &fakeProvider{response: `[{"type":"click","value":"Login"},{"type":"wait","value":"3"}]`}
	tr := NewTranslator(provider, time.Second, nil)

	steps, err := tr.Translate(context.Background(), "click the Login button, then wait 3 seconds")

	require.NoError(t, err)
	assert.Equal(t, []executor.Step{
		{Kind: executor.KindClick, Value: "Login"},
		{Kind: executor.KindWait, Value: "3"},
	}, steps)
	assert.Equal(t, 1, provider.calls)
	assert.Contains(t, provider.prompts[0], "Action: click the Login button, then wait 3 seconds")
}

func TestTranslate_TypeStep(t *testing.T) {
	provider := &fakeProvider{response: `[{"type":"type","value":"user@example.com","target":"email"}]`}

	steps, err := NewTranslator(provider, 0, nil).Translate(context.Background(), "type user@example.com into email")

	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, executor.Step{Kind: executor.KindType, Value: "user@example.com", Target: "email"}, steps[0])
}

func TestTranslate_ProseResponseIsParseError(t *testing.T) {
	provider := &fakeProvider{response: "Sure! Here are your steps."}

	steps, err := NewTranslator(provider, 0, nil).Translate(context.Background(), "log in")

	assert.ErrorIs(t, err, ErrTranslationParse)
	assert.Nil(t, steps)
	assert.Equal(t, 1, provider.calls)
}

func TestTranslate_ProviderErrorIsNotParseError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("quota exceeded")}

	_, err := NewTranslator(provider, 0, nil).Translate(context.Background(), "log in")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTranslationParse)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, provider.calls)
}

func TestTranslate_Timeout(t *testing.T) {
	provider := &fakeProvider{block: true}

	_, err := NewTranslator(provider, 20*time.Millisecond, nil).Translate(context.Background(), "log in")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseSteps_Accepted(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []executor.Step
	}{
		{
			name:     "empty array",
			response: "[]",
			want:     []executor.Step{},
		},
		{
			name:     "surrounding whitespace",
			response: "\n  [{\"type\":\"click\",\"value\":\"OK\"}]  \n",
			want:     []executor.Step{{Kind: executor.KindClick, Value: "OK"}},
		},
		{
			name:     "json code fence",
			response: "```json\n[{\"type\":\"click\",\"value\":\"OK\"}]\n```",
			want:     []executor.Step{{Kind: executor.KindClick, Value: "OK"}},
		},
		{
			name:     "bare code fence",
			response: "```\n[{\"type\":\"wait\",\"value\":\"1\"}]\n```",
			want:     []executor.Step{{Kind: executor.KindWait, Value: "1"}},
		},
		{
			name:     "numeric wait value",
			response: `[{"type":"wait","value":2}]`,
			want:     []executor.Step{{Kind: executor.KindWait, Value: "2"}},
		},
		{
			name:     "fractional wait value kept as text",
			response: `[{"type":"wait","value":1.5}]`,
			want:     []executor.Step{{Kind: executor.KindWait, Value: "1.5"}},
		},
		{
			name:     "unknown kind preserved",
			response: `[{"type":"scroll","value":"down"}]`,
			want:     []executor.Step{{Kind: "scroll", Value: "down"}},
		},
		{
			name:     "extra members ignored",
			response: `[{"type":"click","value":"OK","confidence":0.9}]`,
			want:     []executor.Step{{Kind: executor.KindClick, Value: "OK"}},
		},
		{
			name:     "type with empty value",
			response: `[{"type":"type","value":"","target":"search"}]`,
			want:     []executor.Step{{Kind: executor.KindType, Target: "search"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSteps(tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSteps_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "prose", response: "Click the login button"},
		{name: "object", response: `{"type":"click","value":"OK"}`},
		{name: "null", response: "null"},
		{name: "array of strings", response: `["Click 'Login'"]`},
		{name: "null element", response: `[null]`},
		{name: "missing type", response: `[{"value":"OK"}]`},
		{name: "numeric type", response: `[{"type":1,"value":"OK"}]`},
		{name: "click without value", response: `[{"type":"click"}]`},
		{name: "wait with empty value", response: `[{"type":"wait","value":""}]`},
		{name: "type without target", response: `[{"type":"type","value":"hello"}]`},
		{name: "boolean value", response: `[{"type":"click","value":true}]`},
		{name: "numeric target", response: `[{"type":"type","value":"x","target":3}]`},
		{name: "stray closing bracket", response: `[{"type":"click","value":"OK"}]]`},
		{name: "stray closing brace", response: `[{"type":"click","value":"OK"}]}`},
		{name: "empty array then brackets", response: "[] ]]]"},
		{name: "second array", response: `[] []`},
		{name: "text after array", response: `[{"type":"click","value":"OK"}] Let me know if you need more.`},
		{name: "prose before fence", response: "Here you go:\n```json\n[]\n```"},
		{name: "unterminated", response: `[{"type":"click","value":"OK"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := ParseSteps(tt.response)
			assert.ErrorIs(t, err, ErrTranslationParse)
			assert.Nil(t, steps)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt("click 'Save'")
	assert.Contains(t, p, "Action: click 'Save'")
	assert.Contains(t, p, `"target"`)
	assert.NotContains(t, p, "{{action}}")
}
