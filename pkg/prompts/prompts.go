// Package prompts holds the prompt text sent to vision and text models.
// Each pipeline step has a system prompt and a user prompt builder.
package prompts

import "fmt"

// DefaultCaption is the default prompt for a plain single-call caption.
const DefaultCaption = "Write a concise, vivid caption for this image. " +
	"Describe key subjects, scene, and mood in 1-2 sentences."

// AltSystem frames alt-text generation.
const AltSystem = "You describe images for accessibility. Be concise and strictly factual. Do not infer unseen details."

// AltUser asks for a bounded one-sentence description.
func AltUser(maxWords int) string {
	return fmt.Sprintf(
		"Describe this image in <= %d words. Neutral tone. "+
			"No brand/species/location guesses. Return one sentence only. If unknown, omit.",
		maxWords)
}

// CaptionSystem frames dense caption generation.
const CaptionSystem = "You carefully describe visual content without guessing. Mention salient text only if clearly readable."

// CaptionUser asks for a multi-sentence factual caption.
const CaptionUser = "Write a factual, detailed caption (2-6 sentences) for this image. Cover:\n" +
	"- Who/what is visible (counts if reliable).\n" +
	"- Where/setting if visually indicated.\n" +
	"- Salient readable text.\n" +
	"- Relationships (e.g., 'person holding red umbrella near taxi').\n" +
	"- Lighting/time cues if obvious (e.g., night, golden hour).\n" +
	"If uncertain, say 'unclear'. Do not guess brands, species, or locations unless unmistakable. Avoid subjective adjectives."

// CombinedSystem frames the single-call alt-text + caption request.
const CombinedSystem = "You describe images accurately and concisely without guessing. Return valid JSON only."

// CombinedUser asks for alt text and caption in one JSON object.
func CombinedUser(maxAltWords int) string {
	return fmt.Sprintf(
		"Return a JSON object with exactly two fields: \n"+
			"{\n  \"alt_text\": string,\n  \"caption\": string\n}\n\n"+
			"Constraints:\n"+
			"- alt_text: one sentence, <= %d words, strictly factual, neutral tone.\n"+
			"- caption: 2-6 factual sentences, include what/where/relationships/lighting.\n"+
			"- No brand/species/location guesses unless unmistakable. No subjective adjectives.",
		maxAltWords)
}

// StructuredVisionSystem frames metadata extraction from image plus caption.
const StructuredVisionSystem = "You extract only what is visibly supported by the image and caption. " +
	"Do not guess. Use null or [] when unknown. Return valid JSON only."

// StructuredVisionUser asks for the metadata object given the image and caption.
func StructuredVisionUser(caption string) string {
	return "From this image and caption, return a compact JSON object with exactly these fields: \n" +
		metadataFields + "\n\n" +
		fmt.Sprintf("CAPTION: '%s'\n\n", caption) +
		metadataRules
}

// StructuredTextSystem frames metadata extraction from the caption alone.
const StructuredTextSystem = "You extract structured metadata from the caption only. Do not guess. " +
	"Use null or [] when unknown. Return valid JSON only."

// StructuredTextUser asks for the metadata object given only the caption.
func StructuredTextUser(caption string) string {
	return "From the caption, return a compact JSON object with exactly these fields: \n" +
		metadataFields + "\n\n" +
		fmt.Sprintf("CAPTION: '%s'\n\n", caption) +
		metadataRules
}

const metadataFields = "media_type, objects, place, scene, lighting, style, palette, text, people, privacy, tags, notes."

const metadataRules = "Rules:\n" +
	"- media_type: one of photo | film_still | painting | illustration | render | screenshot | poster | document.\n" +
	"- objects: 1-6 salient nouns.\n" +
	"- place: null unless clearly evidenced by visible text or filename tokens.\n" +
	"- scene: 1-3 tokens (e.g., indoor, corridor, street).\n" +
	"- lighting: 1-3 tokens (e.g., soft, dramatic, night).\n" +
	"- style: 1-5 aesthetic/genre tokens.\n" +
	"- palette: 3-6 plain color words.\n" +
	"- text: salient readable words only.\n" +
	"- people: {count, faces_visible}.\n" +
	"- privacy: only if applicable from content (faces_visible, license_plate_visible, nudity_or_racy, children_visible, sensitive_document).\n" +
	"- tags: union of media_type + scene + lighting + style + palette + objects; deduplicate; <=20.\n" +
	"- notes: short sentence only if strong evidence (e.g., 'Likely a film still').\n" +
	"- Omit fields that would be empty or null, except always include media_type, objects, people, tags.\n" +
	"Return JSON only."

// WithContext appends a caller-supplied context string to a prompt.
func WithContext(prompt, context string) string {
	if context == "" {
		return prompt
	}
	return prompt + "\n\n" + context
}
