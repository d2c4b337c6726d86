package score

import (
	"fmt"
	"strings"

	"NewsletterCurator/internal/domain"
)

// interestProfile is the fixed rubric the judge scores against. The point
// table mirrors the deterministic weights so both passes agree on what a
// signal is worth.
const interestProfile = `## Interest Profile

### Interest areas (+3 points each, multiple can apply)
- AI agents & workflows (LangChain, CrewAI, AutoGen, custom agent frameworks)
- Python libraries (new or notable packages, updates to popular ones)
- DuckDB ecosystem (extensions, integrations, tools)
- RAG / knowledge graphs (retrieval-augmented generation, vector DBs, graph DBs)
- Local LLMs / inference (ollama, llama.cpp, vLLM, quantization)
- Machine learning and deep learning (scikit-learn, XGBoost, PyTorch, transformers)
- Graph theory (NetworkX, graph algorithms, graph databases)
- AI coding tools (Claude Code, Cursor, Copilot, AI-assisted development)
- PostgreSQL (extensions, optimization, tooling)
- Statistics (regression, hypothesis testing, data visualization, Bayes)

### Rejection criteria (-3 points each, multiple can apply)
- Domain-specific tools for other industries (real estate, HR, legal)
- Pure consumer/entertainment AI (AI art toys, chatbot novelties)
- Marketing fluff without real artifacts (no repo, no docs, no demo)
- Enterprise tooling requiring large teams (Kubernetes operators, enterprise CI/CD)
- Content that is too basic ("What is AI?", "Introduction to Python")
- Frontend frameworks (React, Vue, Angular, Svelte, Next.js)

### Quality signals
| Factor | Points |
|--------|--------|
| Has real artifact (repo, docs, demo, package) | +2 |
| Practical and actionable (tutorial, how-to, code examples) | +1 |
| From trusted source | +1 |
| No artifact, just a landing page | -2 |
| Marketing heavy, substance light | -2 |
| Shallow listicle | -1 |`

const systemPromptHeader = `You are a newsletter item evaluator for a technical consultant who builds Python projects with AI assistance. Score each item against the interest profile and return a structured JSON response.

The final score is the SUM of ALL applicable signals. Start at 0 and add or subtract points for every signal that applies. List each applied signal in the "signals" array with its point value.

`

const responseContract = `

### Item types (pick the best match)
python_library, duckdb_extension, ai_tool, agent_workflow, model_release,
platform_infra, concept_pattern, coding_tool, vibe_coding_tool,
ai_architecture, infra_reference, book_paper, article

## Response format

Return ONLY valid JSON (no markdown fences, no extra text):
{
    "score": <integer, can be negative>,
    "item_type": "<one of the item types above>",
    "description": "<1-2 sentence neutral description>",
    "reasoning": "<1-2 sentences explaining the score>",
    "signals": ["<signal with points, e.g. '+3 matches Python libraries'>"],
    "suggested_name": "<clean entry title>",
    "suggested_category": "<e.g. 'LLM Framework', 'Vector Database'>",
    "tags": ["<2-5 relevant tags>"],
    "is_listicle": <true when the item is a roundup of many tools>,
    "listicle_item_type": "<when is_listicle: the item type the list enumerates, else omit>"
}`

// SystemPrompt assembles the fixed rubric plus optional feedback examples.
func SystemPrompt(feedbackExamples string) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	b.WriteString(interestProfile)
	b.WriteString(responseContract)
	if feedbackExamples != "" {
		b.WriteString("\n")
		b.WriteString(feedbackExamples)
	}
	return b.String()
}

// UserPrompt renders one candidate for evaluation, truncating the body to
// maxTextChars. Items without text are scored on metadata alone.
func UserPrompt(item domain.CandidateItem, maxTextChars int) string {
	text := item.RawText
	if maxTextChars > 0 && len(text) > maxTextChars {
		// Cap on a rune boundary; slicing bytes could split a multi-byte
		// character and feed the model invalid UTF-8.
		if runes := []rune(text); len(runes) > maxTextChars {
			text = string(runes[:maxTextChars])
		}
	}
	if strings.TrimSpace(text) == "" {
		text = "[No article text extracted - score based on URL, title, and link text only]"
	}

	return fmt.Sprintf(`Evaluate this newsletter item:

URL: %s
Link text: %s
Title: %s
Author: %s
Source: %s

Article text (truncated):
%s
`, item.URL, item.LinkText, item.Title, item.Author, item.Source, text)
}
