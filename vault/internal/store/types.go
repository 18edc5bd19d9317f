package store

// Document processing statuses. A document enters "processing" on upload and
// ends in exactly one of "completed" or "failed". Terminal statuses never
// revert; Reset is the only sanctioned way back to "processing" and is used
// solely by reprocessing.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is one uploaded file and everything derived from it.
// Timestamps are Unix milliseconds. JSON-valued columns are stored as TEXT.
type Document struct {
	ID               int64  `json:"id"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path"`
	FileSize         int64  `json:"file_size"`
	FileType         string `json:"file_type"`
	Status           string `json:"status"`
	UploadedAt       int64  `json:"uploaded_at"`
	ProcessedAt      int64  `json:"processed_at,omitempty"`

	OCRText       string  `json:"ocr_text,omitempty"`
	OCRConfidence float64 `json:"ocr_confidence"`
	OCRDurationMs int64   `json:"ocr_duration_ms"`

	DocumentType  string `json:"document_type,omitempty"`
	ExtractedJSON string `json:"extracted_json,omitempty"`
	LLMModel      string `json:"llm_model,omitempty"`
	LLMDurationMs int64  `json:"llm_duration_ms"`

	TagsJSON string `json:"tags_json,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Archived bool   `json:"archived"`

	Error string `json:"error,omitempty"`
}

// Search is one recorded natural-language query and its answer.
type Search struct {
	ID              int64  `json:"id"`
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	Persona         string `json:"persona"`
	DocumentIDsJSON string `json:"document_ids_json"`
	DurationMs      int64  `json:"duration_ms"`
	CreatedAt       int64  `json:"created_at"`
}

// Filter narrows ListDocuments.
type Filter struct {
	IDs             []int64
	Type            string
	Status          string
	IncludeArchived bool
	Limit           int
}

// Stats summarises the vault contents.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByType   map[string]int `json:"by_type"`
	Searches int            `json:"searches"`
}
