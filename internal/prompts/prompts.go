package prompts

// AltTextPrompt asks the model for screen-reader ALT text.
const AltTextPrompt = "You are an accessibility assistant. Write a concise, objective ALT text " +
	"for screen readers. Max 160 characters. No extra commentary, no emojis, no brand guessing."

// ObjectTagsPrompt asks the model for a JSON list of searchable objects.
const ObjectTagsPrompt = "List 3-10 salient objects in this photo that would help with search. " +
	"Return ONLY JSON with this schema: {\"objects\": [\"noun\", ...]}. " +
	"Use lowercase, singular nouns, no duplicates."
