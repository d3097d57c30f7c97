package prompt

import (
	"strings"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

// Literal section markers the analysis response must contain, one per line.
const (
	StructureMarker = "=== STRUCTURE ANALYSIS ==="
	SummaryMarker   = "=== SUMMARY ==="
)

const (
	// NoPaperContent stands in for the paper context when nothing is known yet.
	NoPaperContent = "No paper content provided."

	analyzeUserPrefix = "Here is the full text of the paper:\n\n"

	chatSystemPrefix = "You are a helpful research assistant. Use the following paper content to answer questions accurately. If the answer isn't in the paper, say so.\n\nPaper Content:\n"
)

// analyzeSystemPrompt asks for a structure check followed by a long-form
// summary, delimited by the two markers.
var analyzeSystemPrompt = strings.TrimSpace(`
You are a helpful assistant specialized in analyzing and summarizing academic papers.

=== Section 1: Structure Verification ===
1. Inspect the provided text and verify it follows a valid research-paper structure:
   - Abstract
   - Introduction
   - Methods (or Materials and Methods)
   - Results
   - Discussion
   - Conclusion
2. If any key section is missing, misnamed, or out of order, respond with a concise diagnostic listing those issues by name (e.g. "Missing Methods section", "Discussion appears before Results").

=== Section 2: Summarization (Long Form) ===
After the structure analysis, produce a thorough, long-form summary that covers:
- The paper's main objectives and research questions
- Detailed description of key methods and approach
- Principal findings and contributions, with specifics
- Implications, significance, and potential future directions
- Any notable strengths or limitations you observe

Format your response EXACTLY as follows:

` + StructureMarker + `
[Your structure analysis here]

` + SummaryMarker + `
[Your detailed summary here]`)

// Message is one entry in the ordered list sent to the completion service.
type Message struct {
	Role    models.Role
	Content string
}

// BuildAnalyzeMessages returns the system instructions and the user turn
// carrying the full paper text.
func BuildAnalyzeMessages(fullText string) []Message {
	return []Message{
		{Role: models.RoleSystem, Content: analyzeSystemPrompt},
		{Role: models.RoleUser, Content: analyzeUserPrefix + fullText},
	}
}

// PaperContext is what a chat turn knows about the paper being discussed.
type PaperContext struct {
	Summary     string
	FullSummary string
	Compliance  string
}

// PaperContextFromPaper takes the analysis fields of a paper. A paper that
// has not completed yields an empty context.
func PaperContextFromPaper(paper models.Paper) PaperContext {
	return PaperContext{
		Summary:     paper.Summary,
		FullSummary: paper.FullSummary,
		Compliance:  paper.Compliance,
	}
}

// Text joins the non-empty fields with blank lines, or returns the
// NoPaperContent placeholder when every field is empty.
func (c PaperContext) Text() string {
	var parts []string
	for _, field := range []string{c.Summary, c.FullSummary, c.Compliance} {
		if strings.TrimSpace(field) != "" {
			parts = append(parts, field)
		}
	}
	if len(parts) == 0 {
		return NoPaperContent
	}
	return strings.Join(parts, "\n\n")
}

// BuildChatMessages returns the system message embedding the paper context,
// then history oldest first, then the new user turn. history is not modified.
func BuildChatMessages(paper PaperContext, history []models.Message, userTurn string) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: models.RoleSystem, Content: chatSystemPrefix + paper.Text()})
	for _, m := range history {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, Message{Role: models.RoleUser, Content: userTurn})
	return messages
}
