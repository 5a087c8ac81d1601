package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/gcursor/internal/executor"
)

// ErrTranslationParse is returned when the model's response is not a JSON
// array of well-formed step objects.
var ErrTranslationParse = errors.New("translation response could not be parsed")

// Translator turns a natural-language action into executor steps with a
// single completion call.
type Translator struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewTranslator creates a translator. A zero timeout leaves the call bounded
// only by the caller's context.
func NewTranslator(provider Provider, timeout time.Duration, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{provider: provider, timeout: timeout, logger: logger.Named("translator")}
}

// Translate calls the provider exactly once and parses its response.
func (t *Translator) Translate(ctx context.Context, action string) ([]executor.Step, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := t.provider.Complete(ctx, buildPrompt(action))
	if err != nil {
		return nil, fmt.Errorf("translate action: %w", err)
	}
	t.logger.Debug("Model responded", zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(text)))

	steps, err := ParseSteps(text)
	if err != nil {
		t.logger.Debug("Unparseable model response", zap.String("response", text))
		return nil, err
	}
	return steps, nil
}

// ParseSteps decodes a model response into steps. Surrounding whitespace and
// one Markdown code fence are removed; anything else must be a JSON array.
func ParseSteps(response string) ([]executor.Step, error) {
	payload := stripFence(response)

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var raw []map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of step objects: %v", ErrTranslationParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON array", ErrTranslationParse)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON array, got null", ErrTranslationParse)
	}

	steps := make([]executor.Step, 0, len(raw))
	for i, obj := range raw {
		step, err := parseStep(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrTranslationParse, i, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseStep(obj map[string]json.RawMessage) (executor.Step, error) {
	var step executor.Step
	if obj == nil {
		return step, errors.New("not an object")
	}

	kind, ok, err := stringField(obj, "type", false)
	if err != nil {
		return step, err
	}
	if !ok {
		return step, errors.New(`missing "type"`)
	}
	step.Kind = executor.Kind(kind)

	if step.Value, _, err = stringField(obj, "value", true); err != nil {
		return step, err
	}
	if step.Target, _, err = stringField(obj, "target", false); err != nil {
		return step, err
	}

	switch step.Kind {
	case executor.KindClick, executor.KindWait:
		if step.Value == "" {
			return step, fmt.Errorf("%s step without a value", step.Kind)
		}
	case executor.KindType:
		if step.Target == "" {
			return step, errors.New("type step without a target")
		}
	}
	return step, nil
}

// stringField reads a string member. Numbers are accepted as their decimal
// text when allowNumber is set. A null member counts as absent.
func stringField(obj map[string]json.RawMessage, key string, allowNumber bool) (string, bool, error) {
	raw, ok := obj[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}
	if allowNumber {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err == nil {
			return n.String(), true, nil
		}
	}
	return "", false, fmt.Errorf("%q must be a string, got %s", key, raw)
}

// stripFence removes surrounding whitespace and a single ```/```json fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := s[3 : len(s)-3]
	// Drop the info string, e.g. "json".
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if info := strings.TrimSpace(body[:nl]); info == "" || !strings.ContainsAny(info, "[{") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}
