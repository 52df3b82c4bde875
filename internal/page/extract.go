package page

// PageText is the flattened view of a page used for indexing and for
// local re-chunking. It is computed fresh on every call; nothing here
// is persisted.
type PageText struct {
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	BodyText        string `json:"bodyText"`
}

// Content flattens the three fields into the single string the indexing
// backend sees. The chunker runs over exactly this string on both sides.
func (p PageText) Content() string {
	return p.Title + "\n" + p.MetaDescription + "\n" + p.BodyText
}

// Extract reads the current document state. Absent elements degrade to
// empty fields; extraction itself cannot fail.
func (d *Document) Extract() PageText {
	return PageText{
		Title:           d.Title(),
		MetaDescription: d.MetaDescription(),
		BodyText:        d.BodyText(),
	}
}
