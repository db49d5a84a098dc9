package ollama

import "strings"

const jsonInstruction = "Respond with a single JSON object only. No markdown fences, no commentary."

func withJSONInstruction(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if strings.Contains(prompt, jsonInstruction) {
		return prompt
	}
	return prompt + "\n\n" + jsonInstruction
}
