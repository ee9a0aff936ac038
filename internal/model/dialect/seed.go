package dialect

// Seed returns the starter vocabulary loaded on boot. Everyday words and
// the family terms the dialect detector special-cases.
func Seed() []Entry {
	return []Entry{
		{English: "mother", Male: "މަންމަ", Huvadhoo: "މަންމާ", Addu: "މަންމާ"},
		{English: "father", Male: "ބައްޕަ", Huvadhoo: "ބައްޕާ", Addu: "ބަފާ"},
		{English: "brother", Male: "ބޭބެ", Huvadhoo: "ބޭބޭ", Addu: "ބޭބޭ"},
		{English: "sister", Male: "ދައްތަ", Huvadhoo: "ދައްތާ", Addu: "ދައިތާ"},
		{English: "water", Male: "ފެން", Huvadhoo: "ފެނޮ", Addu: "ފެނާ"},
		{English: "fish", Male: "މަސް", Huvadhoo: "މަހޮ", Addu: "މަހާ"},
		{English: "house", Male: "ގެ", Huvadhoo: "ގޭ", Addu: "ގެޔާ"},
		{English: "island", Male: "ރަށް", Huvadhoo: "ރަށޮ", Addu: "ރަށާ"},
		{English: "boat", Male: "ދޯނި", Huvadhoo: "ދޯންޏޮ", Addu: "ދޯންޏާ"},
		{English: "coconut", Male: "ކާށި", Huvadhoo: "ކާއްޓޮ", Addu: "ކާއްޓާ"},
	}
}
