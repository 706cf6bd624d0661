// Package fixgen asks a hosted generative model for a corrected version of
// source code that has a reported security issue.
package fixgen

import "fmt"

// DefaultLanguage is assumed when the request does not name one.
const DefaultLanguage = "javascript"

// Issue is a single finding reported by the analysis backend.
type Issue struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// FixRequest is the body of a fix-generation call.
type FixRequest struct {
	OriginalCode string `json:"originalCode"`
	Issue        *Issue `json:"issue"`
	FileName     string `json:"fileName"`
	Language     string `json:"language,omitempty"`
}

// Normalize fills defaults and reports whether the required fields are present.
func (r *FixRequest) Normalize() bool {
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	return r.OriginalCode != "" && r.Issue != nil
}

const promptTemplate = `
You are a security expert. I have a security issue in my code that needs to be fixed.

**File:** %[1]s
**Language:** %[2]s
**Security Issue:** %[3]s
**Severity:** %[4]s
**Line:** %[5]d

**Original Code:**
` + "```" + `%[2]s
%[6]s
` + "```" + `

Please provide:
1. A fixed version of the ENTIRE code with the security issue resolved
2. A brief explanation of what was wrong and how you fixed it
3. Additional security recommendations if applicable

Requirements:
- Maintain the exact same functionality
- Fix only the security issue, don't change unrelated code structure
- Use best practices for %[2]s security
- Provide working, production-ready code
- Keep the same variable names and function signatures where possible

Please respond in this JSON format:
{
  "fixedCode": "complete fixed code here",
  "explanation": "explanation of the fix",
  "recommendations": ["additional security tip 1", "additional security tip 2"]
}
`

// BuildPrompt renders the instruction sent to the model. The request must
// have been normalized.
func BuildPrompt(req FixRequest) string {
	issue := Issue{}
	if req.Issue != nil {
		issue = *req.Issue
	}
	return fmt.Sprintf(promptTemplate,
		req.FileName,
		req.Language,
		issue.Message,
		issue.Severity,
		issue.Line,
		req.OriginalCode,
	)
}
