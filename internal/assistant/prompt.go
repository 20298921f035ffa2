package assistant

import "regexp"

const systemPrompt = `You are an expense tracking assistant with conversation memory.

When answering questions:
1. Search ALL items in the provided expense context carefully
2. Product names may be abbreviated or in any language - understand them
3. List exact item names and prices from the data
4. Never invent data not in the context
5. Do NOT use markdown formatting (no **, no *, no #, no backticks)
6. Remember previous messages in this conversation and refer back to them when relevant
7. If user asks follow-up questions like "what about X?" or "and Y?", use conversation context

Keep responses concise and in plain text.`

func buildUserPrompt(question, digest string) string {
	return digest + "\n\nUser Question: " + question
}

var queryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)how much`),
	regexp.MustCompile(`(?i)what did i spend`),
	regexp.MustCompile(`(?i)total spent`),
	regexp.MustCompile(`(?i)spending on`),
	regexp.MustCompile(`(?i)compare.*spending`),
	regexp.MustCompile(`(?i)average`),
	regexp.MustCompile(`(?i)most expensive`),
	regexp.MustCompile(`(?i)category breakdown`),
	regexp.MustCompile(`(?i)trend`),
	regexp.MustCompile(`(?i)insight`),
}

// IsExpenseQuery reports whether text reads like a question about spending.
func IsExpenseQuery(text string) bool {
	for _, p := range queryPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var markdownRules = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`(?m)^#+\s*`), ""},
	{regexp.MustCompile(`(?m)^[-*]\s+`), "- "},
}

// StripMarkdown removes bold, italic, code and heading markup and
// normalizes bullets to "- ".
func StripMarkdown(text string) string {
	for _, rule := range markdownRules {
		text = rule.pattern.ReplaceAllString(text, rule.repl)
	}
	return text
}
