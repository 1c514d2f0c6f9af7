package schema

// ArtifactKind identifies one of the textual outputs a run can produce.
type ArtifactKind string

const (
	ArtifactTranscription ArtifactKind = "transcription"
	ArtifactTranslation   ArtifactKind = "translation"
	ArtifactSummary       ArtifactKind = "summary"
	ArtifactActionItems   ArtifactKind = "action_items"
	ArtifactTopics        ArtifactKind = "topics"
)

// Artifact is a persisted stage result for one input.
type Artifact struct {
	Kind    ArtifactKind
	Input   string // base name of the owning media input
	Path    string
	Content string
}

// TranscriptFragment is the text obtained for a single audio chunk.
// Fragments are reassembled strictly by ascending Chunk index.
type TranscriptFragment struct {
	Chunk int
	Text  string
}

// Usage reports token consumption of a single completion call.
type Usage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}
