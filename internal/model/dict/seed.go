package dict

// Seed returns the starter dictionary loaded on boot. Common Maldivian
// words in their Latin transliteration, paired with the Thaana spelling
// inside the definition.
func Seed() []Entry {
	return []Entry{
		{Word: "dhoni", Definition: "ދޯނި. A traditional Maldivian boat, originally sail-driven and now usually motorised, used for fishing and inter-island transport."},
		{Word: "atoll", Definition: "އަތޮޅު. A ring-shaped coral reef enclosing a lagoon. The English word was borrowed from the Dhivehi 'atholhu'."},
		{Word: "boduberu", Definition: "ބޮޑުބެރު. A traditional drumming and dance performance, literally 'big drum'."},
		{Word: "mas huni", Definition: "މަސްހުނި. A breakfast dish of shredded smoked tuna, grated coconut, onion and chilli, eaten with roshi."},
		{Word: "roshi", Definition: "ރޮށި. A thin unleavened flatbread, the everyday bread of the Maldives."},
		{Word: "joali", Definition: "ޖޯލި. A woven net seat strung on a wooden frame, found outside most island homes."},
		{Word: "feyli", Definition: "ފޭލި. A traditional sarong woven with black and white bands, worn on formal occasions."},
		{Word: "holhuashi", Definition: "ހޮޅުއަށި. A raised open-sided platform near the beach where islanders gather and talk."},
		{Word: "undhoali", Definition: "އުނދޯލި. A large wooden swing hung indoors or under a tree."},
		{Word: "thaana", Definition: "ތާނަ. The script in which Dhivehi is written, read from right to left."},
	}
}
