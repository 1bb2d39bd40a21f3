package model

// Mention is a manuscript passage referencing an entity by name. It is
// derived on demand from the manuscript collaborator and never stored in the
// graph.
type Mention struct {
	ChapterID    string `json:"chapter_id"`
	ChapterTitle string `json:"chapter_title"`
	Context      string `json:"context"`
}
