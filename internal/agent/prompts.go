package agent

import "fmt"

// RetryPrompt asks for a new answer after answer was rejected.
func RetryPrompt(question, answer string) string {
	return fmt.Sprintf("You answer: %s for question: %s is wrong! please give new answer.", answer, question)
}

const validatePromptTemplate = `
Given the following question: %[1]s and answer: %[2]s.
Is the answer correct?
Return your analysis in YAML format:
` + "```yaml" + `
is_correct: true/false # true if the query is related to %[1]s, false otherwise
reason: "Brief explanation of your decision"
`

// ValidatePrompt asks a model to judge answer and reply with a YAML verdict.
func ValidatePrompt(question, answer string) string {
	return fmt.Sprintf(validatePromptTemplate, question, answer)
}
