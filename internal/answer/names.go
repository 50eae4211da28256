package answer

// firstNames recognizes the leading words of a personal name so that a bare
// surname can be accepted for answers like "William Shakespeare". The list
// only needs to cover names that plausibly appear in clue answers.
var firstNames = toSet([]string{
	"aaron", "abigail", "abraham", "adam", "agatha", "alan", "albert",
	"alexander", "alfred", "alice", "amelia", "andrew", "andy", "angela",
	"ann", "anna", "anne", "anthony", "antonio", "arthur", "barack",
	"barbara", "benjamin", "bernard", "betty", "bill", "billy", "bob",
	"brian", "bruce", "calvin", "carl", "carlos", "carol", "caroline",
	"catherine", "cecil", "charles", "charlie", "charlotte", "chester",
	"chris", "christopher", "claire", "clara", "clark", "claude", "clint",
	"cole", "daniel", "david", "dennis", "diana", "dolly", "donald",
	"dorothy", "douglas", "duke", "dwight", "edgar", "edith", "edmund",
	"edward", "edwin", "eleanor", "elizabeth", "ella", "ellen", "elon",
	"elvis", "emily", "emma", "eric", "ernest", "ethan", "eugene", "eva",
	"evelyn", "felix", "florence", "frances", "francis", "frank",
	"franklin", "fred", "frederick", "gabriel", "gary", "george", "gerald",
	"gilbert", "gloria", "gordon", "grace", "graham", "grant", "gregory",
	"grover", "hannah", "harold", "harriet", "harry", "helen", "henry",
	"herbert", "herman", "howard", "hugh", "hugo", "ian", "ingrid",
	"irene", "isaac", "isabella", "jack", "jackie", "jacob", "james",
	"jane", "janet", "jason", "jean", "jennifer", "jeremy", "jerome",
	"jerry", "jesse", "jessica", "jim", "jimmy", "joan", "joe", "john",
	"johnny", "jonathan", "jose", "joseph", "josephine", "joshua", "juan",
	"judith", "judy", "julia", "julian", "julius", "karen", "karl",
	"katherine", "kathleen", "keith", "kenneth", "kevin", "kurt", "larry",
	"laura", "lawrence", "lee", "leo", "leon", "leonard", "leonardo",
	"lewis", "lillian", "linda", "lisa", "louis", "louisa", "louise",
	"lucas", "lucille", "lucy", "ludwig", "luke", "lyndon", "margaret",
	"maria", "marie", "marilyn", "mark", "martha", "martin", "mary",
	"matthew", "maurice", "max", "maya", "michael", "miles", "milton",
	"mitchell", "nancy", "napoleon", "natalie", "nathan", "nathaniel",
	"neil", "nelson", "nicholas", "nicolas", "noah", "norman", "oliver",
	"olivia", "orson", "orville", "oscar", "otto", "pablo", "patricia",
	"patrick", "paul", "pearl", "percy", "peter", "philip", "phillip",
	"rachel", "ralph", "raymond", "rebecca", "richard", "robert", "roger",
	"ronald", "rosa", "rose", "roy", "rudolph", "russell", "ruth", "ryan",
	"sally", "sam", "samuel", "sandra", "sarah", "scott", "sean",
	"sebastian", "sigmund", "simon", "sophia", "stanley", "stephen",
	"steve", "steven", "stuart", "susan", "sylvester", "theodore",
	"thomas", "timothy", "tom", "tony", "ulysses", "vera", "victor",
	"victoria", "vincent", "virginia", "walt", "walter", "warren",
	"wayne", "wendy", "wilbur", "wilhelm", "willa", "william", "winston",
	"wolfgang", "woodrow", "wyatt", "zachary",
})

// ambiguousSurnames lists surnames shared by multiple famous namesakes; a
// bare surname is never accepted for them.
var ambiguousSurnames = toSet([]string{
	"adams", "allen", "bach", "baldwin", "bell", "booth", "bronte",
	"brown", "bush", "carter", "clark", "curie", "davis", "fonda",
	"ford", "fox", "franklin", "grimm", "harrison", "hemingway",
	"hepburn", "jackson", "james", "johnson", "jones", "jordan", "kelly",
	"kennedy", "king", "lee", "lewis", "marx", "miller", "moore",
	"murphy", "roosevelt", "smith", "taylor", "walker", "williams",
	"wilson", "wright", "young",
})

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
