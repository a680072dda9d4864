package mcpserver

// Tool input schemas. Every tool takes exactly one of image_url and
// file_path; remaining properties are optional.

const captionImageSchema = `{
  "type": "object",
  "properties": {
    "image_url": {"type": "string", "description": "HTTP/HTTPS URL of the image"},
    "file_path": {"type": "string", "description": "Local file path to the image"},
    "prompt": {"type": "string", "description": "Custom caption prompt"},
    "backend": {"type": "string", "enum": ["openrouter", "local", "ollama"], "description": "Backend to caption with"},
    "local_model_id": {"type": "string", "description": "Model id for the local backend"},
    "model": {"type": "string", "description": "Model id override"},
    "context": {"type": "string", "description": "Extra context appended to the prompt"}
  }
}`

const altTextSchema = `{
  "type": "object",
  "properties": {
    "image_url": {"type": "string", "description": "HTTP/HTTPS URL of the image"},
    "file_path": {"type": "string", "description": "Local file path to the image"},
    "max_words": {"type": "integer", "description": "Maximum words in the alt text (default 20)"},
    "model": {"type": "string", "description": "Model id override"},
    "context": {"type": "string", "description": "Extra context appended to the prompt"}
  }
}`

const denseCaptionSchema = `{
  "type": "object",
  "properties": {
    "image_url": {"type": "string", "description": "HTTP/HTTPS URL of the image"},
    "file_path": {"type": "string", "description": "Local file path to the image"},
    "model": {"type": "string", "description": "Model id override"},
    "context": {"type": "string", "description": "Extra context appended to the prompt"}
  }
}`

const imageMetadataSchema = `{
  "type": "object",
  "properties": {
    "image_url": {"type": "string", "description": "HTTP/HTTPS URL of the image"},
    "file_path": {"type": "string", "description": "Local file path to the image"},
    "caption_override": {"type": "string", "description": "Existing dense caption; skips the caption step"},
    "config_path": {"type": "string", "description": "Path to a model config JSON file"},
    "mode": {"type": "string", "enum": ["double", "triple"], "description": "Pipeline mode (default double)"},
    "caption_model": {"type": "string", "description": "Caption model override"},
    "metadata_text_model": {"type": "string", "description": "Text metadata model override"},
    "metadata_vision_model": {"type": "string", "description": "Vision metadata model override"},
    "context": {"type": "string", "description": "Extra context appended to every vision prompt"}
  }
}`
