package models

import "encoding/json"

// Document is a single knowledge base entry. IDs are stable within one
// document set; a new set fully replaces the previous collection.
type Document struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`

	hasID bool
}

// UnmarshalJSON records whether the id field was present so the loader can
// default it to the positional index.
func (d *Document) UnmarshalJSON(data []byte) error {
	type raw struct {
		ID   *int64 `json:"id"`
		Text string `json:"text"`
	}
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	d.Text = r.Text
	if r.ID != nil {
		d.ID = *r.ID
		d.hasID = true
	} else {
		d.hasID = false
	}
	return nil
}

func (d *Document) HasID() bool { return d.hasID }

// SetID is used by loaders assigning positional ids.
func (d *Document) SetID(id int64) {
	d.ID = id
	d.hasID = true
}

// AssetMeta describes one updatable asset in a manifest or local record.
// Version is either a JSON number (float64) or a string; nil means absent.
type AssetMeta struct {
	Name    string `json:"name,omitempty"`
	Version any    `json:"version,omitempty"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
}

// IsZero reports whether the manifest omitted this block entirely.
func (a AssetMeta) IsZero() bool {
	return a.Name == "" && a.Version == nil && a.URL == "" && a.Path == ""
}

// Manifest is the remote update descriptor and, identically shaped, the
// local metadata record. Any block may be absent.
type Manifest struct {
	Model     AssetMeta `json:"model,omitempty"`
	Documents AssetMeta `json:"documents,omitempty"`
}

// ChatMessage is one turn in a conversation transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Snippet is one knowledge base hit: the document text plus its squared
// Euclidean distance to the query. Distances are unbounded; only relative
// ordering is meaningful.
type Snippet struct {
	Text     string
	Distance float32
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
