package apperrors

const (
	KeyUnexpectedError = "UNEXPECTED_ERROR"
	KeyDatabaseError   = "DATABASE_ERROR"
	KeyInvalidBody     = "INVALID_REQUEST_BODY"
	KeyRateLimited     = "RATE_LIMITED"

	KeyProjectNameExists      = "PROJECT_NAME_EXISTS"
	KeyProjectNotFound        = "PROJECT_NOT_FOUND"
	KeyInvalidProjectIDFormat = "INVALID_PROJECT_ID_FORMAT"

	KeyTemplateNameExists      = "PROMPT_TEMPLATE_NAME_EXISTS"
	KeyTemplateNotFound        = "PROMPT_TEMPLATE_NOT_FOUND"
	KeyInvalidTemplateIDFormat = "INVALID_PROMPT_TEMPLATE_ID_FORMAT"
	KeyInvalidProjectReference = "INVALID_PROJECT_REFERENCE"

	KeyLLMNameExists      = "LLM_NAME_EXISTS"
	KeyLLMNotFound        = "LLM_NOT_FOUND"
	KeyInvalidLLMIDFormat = "INVALID_LLM_ID_FORMAT"
	KeyLLMInUse           = "LLM_IN_USE"
	KeyInvalidProvider    = "INVALID_LLM_PROVIDER"
	KeyConversationError  = "CONVERSATION_ERROR"

	KeyPromptNameExists         = "PROMPT_NAME_EXISTS"
	KeyPromptNotFound           = "PROMPT_NOT_FOUND"
	KeyInvalidPromptIDFormat    = "INVALID_PROMPT_ID_FORMAT"
	KeyInvalidTemplateReference = "INVALID_TEMPLATE_REFERENCE"
	KeyInvalidLLMReference      = "INVALID_LLM_REFERENCE"
	KeyInvalidVersion           = "INVALID_PROMPT_VERSION"

	KeyTestNotFound        = "TEST_NOT_FOUND"
	KeyInvalidTestIDFormat = "INVALID_TEST_ID_FORMAT"
	KeyInvalidPromptIDs    = "INVALID_PROMPT_IDS"
	KeyAssociationNotFound = "ASSOCIATION_NOT_FOUND"
	KeyImageRequired       = "IMAGE_REQUIRED"
	KeyInvalidImageFormat  = "INVALID_IMAGE_FORMAT"

	KeyNameRequired = "NAME_REQUIRED"
)

var messages = map[string]string{
	KeyUnexpectedError: "An unexpected error occurred",
	KeyDatabaseError:   "Database error",
	KeyInvalidBody:     "Invalid request body",
	KeyRateLimited:     "Rate limit exceeded",

	KeyProjectNameExists:      "A project with this name already exists",
	KeyProjectNotFound:        "Project not found",
	KeyInvalidProjectIDFormat: "Invalid project ID format",

	KeyTemplateNameExists:      "A prompt template with this name already exists",
	KeyTemplateNotFound:        "Prompt template not found",
	KeyInvalidTemplateIDFormat: "Invalid prompt template ID format",
	KeyInvalidProjectReference: "Referenced project does not exist",

	KeyLLMNameExists:      "An LLM with this name already exists",
	KeyLLMNotFound:        "LLM not found",
	KeyInvalidLLMIDFormat: "Invalid LLM ID format",
	KeyLLMInUse:           "LLM is still referenced by one or more prompts",
	KeyInvalidProvider:    "Unsupported LLM provider",
	KeyConversationError:  "An error occurred during the conversation with the LLM",

	KeyPromptNameExists:         "A prompt with this name already exists",
	KeyPromptNotFound:           "Prompt not found",
	KeyInvalidPromptIDFormat:    "Invalid prompt ID format",
	KeyInvalidTemplateReference: "Referenced prompt template does not exist",
	KeyInvalidLLMReference:      "Referenced LLM does not exist",
	KeyInvalidVersion:           "Prompt version must be between 0 and 99999.9 with at most one decimal place",

	KeyTestNotFound:        "Test not found",
	KeyInvalidTestIDFormat: "Invalid test ID format",
	KeyInvalidPromptIDs:    "One or more prompt IDs are invalid",
	KeyAssociationNotFound: "Test is not associated with this prompt",
	KeyImageRequired:       "No image content provided",
	KeyInvalidImageFormat:  "Unsupported image format",

	KeyNameRequired: "Name is required",
}

// MessageFor returns the human-readable message for key.
func MessageFor(key string) string {
	if m, ok := messages[key]; ok {
		return m
	}
	return messages[KeyUnexpectedError]
}
