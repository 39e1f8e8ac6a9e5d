package llm

const promptHead = "You are a document processing assistant. Extract key-value pairs from the following text and return ONLY a JSON object. " +
	"Do not include any markdown formatting, code blocks, or additional text. " +
	"The response should be a valid JSON object where keys are the field names and values are the extracted information.\n\n" +
	"Text to process:\n"

const promptTail = "\n\nReturn ONLY a JSON object like this example:\n" +
	"{\n" +
	"  \"invoice_number\": \"INV-001\",\n" +
	"  \"date\": \"2024-03-20\",\n" +
	"  \"total_amount\": \"1000.00\"\n" +
	"}"

// BuildPrompt embeds text verbatim in the fixed extraction instruction.
func BuildPrompt(text string) string {
	return promptHead + text + promptTail
}
