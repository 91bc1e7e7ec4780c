package prober

import (
	"regexp"
	"strings"
)

// interfacePattern maps one interface classification to the page keywords
// that identify it.
type interfacePattern struct {
	classification string
	keywords       []string
}

// interfacePatterns are checked in order; the first match wins. Specific
// vendors come before the generic catch-all so a ChatGPT clone is not
// classified as merely "generic".
var interfacePatterns = []interfacePattern{
	{"chatgpt", []string{"openai", "chatgpt", "gpt-", "chat.openai"}},
	{"claude", []string{"claude", "anthropic", "claude.ai"}},
	{"gemini", []string{"gemini", "bard", "google.ai"}},
	{"ollama", []string{"ollama", "localhost:11434"}},
	{"generic", []string{"chat", " ai ", "bot", "assistant"}},
}

// modelPatterns extract a model identifier from page content. The last
// pattern captures JSON-ish "model": "..." declarations embedded in
// frontend bundles.
var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)gpt-[\d.]+[a-z-]*`),
	regexp.MustCompile(`(?i)claude-[\d.]+[a-z-]*`),
	regexp.MustCompile(`(?i)gemini-[\w\d-]+`),
	regexp.MustCompile(`(?i)llama-[\d.]+[a-z-]*`),
	regexp.MustCompile(`(?i)model["']\s*:\s*["']([^"']+)["']`),
}

// detectInterface classifies the page content as a chat interface.
// It returns the classification and true, or "" and false when nothing in
// the page suggests a chat frontend.
func detectInterface(body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, pattern := range interfacePatterns {
		for _, keyword := range pattern.keywords {
			if strings.Contains(lower, keyword) {
				return pattern.classification, true
			}
		}
	}
	return "", false
}

// extractModel pulls a model identifier out of the page content, or
// returns an empty string when none is recognizable.
func extractModel(body string) string {
	for _, pattern := range modelPatterns {
		match := pattern.FindStringSubmatch(body)
		if match == nil {
			continue
		}
		if len(match) > 1 && match[1] != "" {
			return match[1]
		}
		return match[0]
	}
	return ""
}
