package advisor

import "strings"

const promptHeader = `You are an expert personal finance assistant. Analyze the user's financial data and give personalized recommendations, saving tips and clear analysis.

USER FINANCIAL DATA:
`

const promptRules = `
INSTRUCTIONS:
- Be concise and direct
- Give actionable advice
- Quote the user's own figures
- Be empathetic and encouraging
- If the data is not enough to answer, ask for what is missing

User question: `

// BuildPrompt wraps the financial context and the raw question into the
// instruction sent to the model.
func BuildPrompt(financialContext, question string) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(financialContext) + len(promptRules) + len(question))
	b.WriteString(promptHeader)
	b.WriteString(financialContext)
	b.WriteString(promptRules)
	b.WriteString(question)
	return b.String()
}
