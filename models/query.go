package models

// Query is the normalized form of one user request. CanonicalText is always
// English; Language and LanguageCode record what the user actually spoke or
// typed and are carried through to the final localization step.
type Query struct {
	RawInput      string `json:"raw_input"`
	Language      string `json:"language"`
	LanguageCode  string `json:"language_code"`
	CanonicalText string `json:"canonical_text"`
}

// IsEnglish reports whether the detected source language is English, in which
// case the generated answer is returned without a translation pass.
func (q Query) IsEnglish() bool {
	return q.LanguageCode == "en"
}

// AnswerLocalized is the final output of the engine: the answer text in the
// user's detected language.
type AnswerLocalized struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}
