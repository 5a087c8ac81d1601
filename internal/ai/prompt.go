package ai

import "strings"

const actionPrompt = `Parse the following browser action and convert it to steps:
Action: {{action}}

Return only the steps as a JSON array of objects with "type" and "value" properties.
"type" is one of "click", "type" or "wait".
- click: "value" is the visible text of the element to click.
- type: "value" is the text to enter and "target" is a word from the input's placeholder.
- wait: "value" is a whole number of seconds, as a string.

Example: "Click 'Login', type 'user@example.com' into email, wait 2 seconds" returns:
[{"type": "click", "value": "Login"}, {"type": "type", "value": "user@example.com", "target": "email"}, {"type": "wait", "value": "2"}]

Respond ONLY with the JSON array, no explanation or markdown.`

// buildPrompt embeds the action text into the fixed translation prompt.
func buildPrompt(action string) string {
	return strings.Replace(actionPrompt, "{{action}}", action, 1)
}
