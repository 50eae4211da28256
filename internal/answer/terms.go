package answer

import "strings"

// termKey reduces an answer to its alias-table lookup form: lowercase,
// leading articles and punctuation dropped, whitespace removed.
func termKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, article) {
			s = s[len(article):]
			break
		}
	}
	s = nonAlphaNumRe.ReplaceAllString(s, " ")
	return stripSpaces(s)
}

// interchangeableTerms is the curated equivalence table: every string in one
// row is accepted for every other. Rows are matched via termKey, so
// punctuation and articles do not matter.
var interchangeableTerms = [][]string{
	{"JFK", "John F. Kennedy", "John Fitzgerald Kennedy", "Kennedy"},
	{"FDR", "Franklin D. Roosevelt", "Franklin Delano Roosevelt"},
	{"LBJ", "Lyndon B. Johnson", "Lyndon Baines Johnson"},
	{"MLK", "Martin Luther King", "Martin Luther King Jr", "Dr. Martin Luther King"},
	{"Honest Abe", "Abraham Lincoln", "Abe Lincoln", "Lincoln"},
	{"NYC", "New York City", "New York"},
	{"LA", "Los Angeles"},
	{"DC", "Washington DC", "Washington D.C."},
	{"UK", "United Kingdom", "Great Britain", "Britain"},
	{"USA", "United States", "United States of America", "America", "US"},
	{"USSR", "Soviet Union"},
	{"UAE", "United Arab Emirates"},
	{"UN", "United Nations"},
	{"EU", "European Union"},
	{"NASA", "National Aeronautics and Space Administration"},
	{"FBI", "Federal Bureau of Investigation"},
	{"CIA", "Central Intelligence Agency"},
	{"TV", "television"},
	{"WWI", "World War I", "World War One", "the First World War"},
	{"WWII", "World War II", "World War Two", "the Second World War"},
	{"OJ", "O.J. Simpson", "OJ Simpson"},
	{"Ike", "Dwight Eisenhower", "Dwight D. Eisenhower", "Eisenhower"},
	{"Teddy Roosevelt", "Theodore Roosevelt"},
	{"Bill Clinton", "William Jefferson Clinton", "William Clinton"},
	{"auto", "automobile", "car"},
	{"phone", "telephone"},
	{"fridge", "refrigerator"},
	{"plane", "airplane", "aeroplane"},
	{"bike", "bicycle"},
	{"math", "mathematics", "maths"},
	{"photo", "photograph"},
	{"Coke", "Coca-Cola", "Coca Cola"},
	{"Beetle", "Volkswagen Beetle", "VW Beetle", "Bug"},
	{"Mount Everest", "Everest"},
	{"Holland", "the Netherlands", "Netherlands"},
	{"Burma", "Myanmar"},
	{"Persia", "Iran"},
	{"Siam", "Thailand"},
	{"Xmas", "Christmas"},
	{"Sesame Street", "123 Sesame Street"},
}

// termSets maps each termKey to the index of its equivalence row.
var termSets = func() map[string]int {
	m := make(map[string]int)
	for i, row := range interchangeableTerms {
		for _, term := range row {
			m[termKey(term)] = i
		}
	}
	return m
}()
