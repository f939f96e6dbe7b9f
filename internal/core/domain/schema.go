package domain

type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type FieldGroup struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Schema describes which fields the review form renders for each document type.
// Only the closed set of document types is ever present; the REST adapter drops anything else.
type Schema map[DocumentType][]FieldGroup

// Groups returns the field groups for t, or an empty set when the type is unknown.
func (s Schema) Groups(t DocumentType) []FieldGroup {
	groups, ok := s[t]
	if !ok {
		return []FieldGroup{}
	}
	out := make([]FieldGroup, len(groups))
	for i, g := range groups {
		out[i] = FieldGroup{Title: g.Title, Fields: append([]Field(nil), g.Fields...)}
	}
	return out
}

// Keys returns every field key of t in display order.
func (s Schema) Keys(t DocumentType) []string {
	var keys []string
	for _, g := range s[t] {
		for _, f := range g.Fields {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Label returns the display label for key, falling back to the key itself.
func (s Schema) Label(t DocumentType, key string) string {
	for _, g := range s[t] {
		for _, f := range g.Fields {
			if f.Key == key {
				return f.Label
			}
		}
	}
	return key
}
