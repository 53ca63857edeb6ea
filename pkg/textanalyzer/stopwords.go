package textanalyzer

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// englishStopWords are common English function words.
var englishStopWords = wordSet(
	"a", "about", "above", "after", "again", "against", "all", "almost", "alone", "along",
	"already", "also", "although", "always", "am", "among", "an", "and", "another", "any",
	"anyhow", "anyone", "anything", "anyway", "anywhere", "are", "around", "as", "at", "be",
	"became", "because", "become", "becomes", "been", "before", "being", "below", "beside",
	"besides", "between", "beyond", "both", "but", "by", "can", "cannot", "could", "did",
	"do", "does", "doing", "done", "down", "during", "each", "either", "else", "enough",
	"etc", "even", "ever", "every", "except", "few", "for", "from", "further", "had", "has",
	"have", "having", "he", "hence", "her", "here", "hers", "herself", "him", "himself",
	"his", "how", "however", "if", "in", "indeed", "into", "is", "it", "its", "itself",
	"just", "last", "least", "less", "many", "may", "me", "meanwhile", "might", "mine",
	"more", "moreover", "most", "mostly", "much", "must", "my", "myself", "neither",
	"never", "nevertheless", "next", "no", "nobody", "none", "nor", "not", "nothing", "now",
	"nowhere", "of", "off", "often", "on", "once", "one", "only", "onto", "or", "other",
	"others", "otherwise", "our", "ours", "ourselves", "out", "over", "own", "per",
	"perhaps", "rather", "same", "she", "should", "since", "so", "some", "somehow",
	"someone", "something", "sometimes", "somewhere", "still", "such", "than", "that",
	"the", "their", "theirs", "them", "themselves", "then", "thence", "there", "therefore",
	"these", "they", "this", "those", "though", "through", "throughout", "thus", "to",
	"together", "too", "toward", "towards", "under", "until", "up", "upon", "us", "very",
	"was", "we", "well", "were", "what", "whatever", "when", "whence", "whenever", "where",
	"whereas", "whether", "which", "while", "who", "whoever", "whole", "whom", "whose",
	"why", "will", "with", "within", "without", "would", "yet", "you", "your", "yours",
	"yourself", "yourselves",
)

// italianStopWords are common Italian function words and auxiliary verb forms.
var italianStopWords = wordSet(
	"a", "ad", "al", "allo", "ai", "agli", "all", "agl", "alla", "alle",
	"con", "col", "coi", "da", "dal", "dallo", "dai", "dagli", "dall", "dagl", "dalla", "dalle",
	"di", "del", "dello", "dei", "degli", "dell", "degl", "della", "delle",
	"e", "ed", "in", "nel", "nello", "nei", "negli", "nell", "negl", "nella", "nelle",
	"su", "sul", "sullo", "sui", "sugli", "sull", "sugl", "sulla", "sulle",
	"per", "tra", "contro", "io", "tu", "lui", "lei", "noi", "voi", "loro",
	"mio", "mia", "miei", "mie", "tuo", "tua", "tuoi", "tue", "suo", "sua", "suoi", "sue",
	"nostro", "nostra", "nostri", "nostre", "vostro", "vostra", "vostri", "vostre",
	"mi", "ti", "ci", "vi", "lo", "la", "li", "le", "gli", "ne",
	"il", "un", "uno", "una", "ma", "se", "perché", "anche", "come",
	"dov", "dove", "che", "chi", "cui", "non", "più", "quale", "quanto", "quanti",
	"quanta", "quante", "quello", "quelli", "quella", "quelle", "questo", "questi",
	"questa", "queste", "si", "ho", "hai", "ha", "abbiamo", "avete", "hanno",
	"abbia", "abbiate", "abbiano", "avrò", "avrai", "avrà", "avremo", "avrete", "avranno",
	"avevo", "avevi", "aveva", "avevamo", "avevate", "avevano",
	"fui", "fosti", "fu", "fummo", "foste", "furono",
	"ero", "eri", "era", "eravamo", "eravate", "erano", "sono", "sei", "è", "siamo",
	"siete", "sia", "siate", "siano", "sto", "stai", "sta", "stiamo", "stanno",
)
