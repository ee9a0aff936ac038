package dialect

// Entry maps an English term to its regional Dhivehi variants.
type Entry struct {
	ID       int64  `json:"id"`
	English  string `json:"english"`
	Male     string `json:"male"`
	Huvadhoo string `json:"huvadhoo"`
	Addu     string `json:"addu"`
}
