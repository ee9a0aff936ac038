// Package dict holds the dictionary vocabulary used to answer
// definition questions without the language model.
package dict

// Entry maps a word to its definition.
type Entry struct {
	ID         int64  `json:"id"`
	Word       string `json:"word"`
	Definition string `json:"definition"`
}
