package export

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

// Document is the JSON export envelope.
type Document struct {
	Company model.Company `json:"company"`
	Query   tree.Query    `json:"query"`
	Count   int           `json:"count"`
	Roots   []*tree.Node  `json:"roots"`
}

// NewDocument wraps a filtered forest, ordering siblings for display.
func NewDocument(company model.Company, q tree.Query, forest []*tree.Node) Document {
	return Document{
		Company: company,
		Query:   q,
		Count:   tree.Count(forest),
		Roots:   tree.Sorted(forest),
	}
}

// WriteJSON writes the forest as an indented JSON array of root nodes.
func WriteJSON(w io.Writer, forest []*tree.Node) error {
	return encode(w, tree.Sorted(forest))
}

// WriteDocument writes doc as indented JSON.
func WriteDocument(w io.Writer, doc Document) error {
	return encode(w, doc)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
