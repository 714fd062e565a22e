package security

// commonPasswords is a local snapshot of the most frequently seen passwords
// in public credential dumps. Lookups are exact and case-sensitive; a miss
// means "not known common", nothing stronger.
var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range commonPasswordList {
		commonPasswords[p] = struct{}{}
	}
}

// IsCommon reports whether the password appears in the embedded
// common-password list.
func IsCommon(password string) bool {
	_, ok := commonPasswords[password]
	return ok
}

var commonPasswordList = []string{
	"123456", "password", "12345678", "qwerty", "123456789",
	"12345", "1234", "111111", "1234567", "dragon",
	"123123", "baseball", "abc123", "football", "monkey",
	"letmein", "696969", "shadow", "master", "666666",
	"qwertyuiop", "123321", "mustang", "1234567890", "michael",
	"654321", "superman", "1qaz2wsx", "7777777", "fuckyou",
	"121212", "000000", "qazwsx", "123qwe", "killer",
	"trustno1", "jordan", "jennifer", "zxcvbnm", "asdfgh",
	"hunter", "buster", "soccer", "harley", "batman",
	"andrew", "tigger", "sunshine", "iloveyou", "fuckme",
	"2000", "charlie", "robert", "thomas", "hockey",
	"ranger", "daniel", "starwars", "klaster", "112233",
	"george", "computer", "michelle", "jessica", "pepper",
	"1111", "zxcvbn", "555555", "11111111", "131313",
	"freedom", "777777", "pass", "maggie", "159753",
	"aaaaaa", "ginger", "princess", "joshua", "cheese",
	"amanda", "summer", "love", "ashley", "nicole",
	"chelsea", "biteme", "matthew", "access", "yankees",
	"987654321", "dallas", "austin", "thunder", "taylor",
	"matrix", "mobilemail", "mom", "monitor", "monitoring",
	"montana", "moon", "moscow", "mother", "movie",
	"hunter2", "password1", "password123", "welcome", "welcome1",
	"admin", "administrator", "root", "toor", "passw0rd",
	"p@ssw0rd", "p@ssword", "secret", "letmein1", "login",
	"qwerty123", "1q2w3e4r", "1q2w3e", "zaq12wsx", "qwe123",
	"abcd1234", "test", "test123", "guest", "changeme",
	"default", "internet", "samsung", "google", "pokemon",
	"liverpool", "arsenal", "chelsea1", "manchester", "rangers",
	"celtic", "barcelona", "madrid", "juventus", "flamengo",
	"england", "scotland", "america", "canada", "mexico",
	"banana", "orange", "apple", "fruit", "chocolate",
	"cookie", "coffee", "whatever", "nothing", "anything",
	"something", "iloveu", "lovely", "flower", "butterfly",
	"angel", "angels", "devil", "heaven", "hello",
	"hello1", "hello123", "helloworld", "hi", "hola",
	"bonjour", "merlin", "wizard", "gandalf", "hobbit",
	"ninja", "samurai", "dragon1", "phoenix", "eagle",
	"falcon", "hawk", "tiger", "tigers", "lion",
	"wolf", "wolves", "bear", "panther", "cobra",
	"viper", "scorpion", "spider", "spiderman", "ironman",
	"hulk", "thor", "avenger", "marvel", "gotham",
	"joker", "harley1", "bond007", "james007", "007007",
	"star", "stars", "startrek", "skywalker", "vader",
	"yoda", "jedi", "sith", "galaxy", "cosmos",
	"silver", "golden", "diamond", "platinum", "crystal",
	"purple", "yellow", "green", "blue", "black",
	"white", "red123", "redsox", "bulldog", "bulldogs",
	"rocket", "rockets", "hammer", "hammers", "spanner",
	"winter", "spring", "autumn", "december", "november",
	"october", "september", "august", "july", "june",
	"friday", "monday", "sunday", "blink182", "metallica",
	"nirvana", "slipknot", "pantera", "rush2112", "ou812",
	"8675309", "abcdef", "abcdefg", "asdf1234", "asdfasdf",
	"qweasd", "qweqwe", "zzzzzz", "xxxxxx", "101010",
	"222222", "333333", "444444", "888888", "999999",
	"147258369", "159357", "258456", "741852963", "963852741",
	"a123456", "123456a", "123abc", "1234abcd", "password2",
	"temp123", "demo123", "user123", "admin123", "root123",
}
