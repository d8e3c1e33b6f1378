package language

const (
	latinLetters  = "abcdefghijklmnopqrstuvwxyz"
	frenchLetters = "àâæçéèêëîïôœùûüÿ"
)

var englishStopWords = []string{
	"a", "about", "after", "all", "also", "am", "an", "and", "any", "are", "as", "at",
	"be", "been", "before", "being", "but", "by", "can", "could", "did", "do", "does",
	"for", "from", "had", "has", "have", "he", "her", "here", "him", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "me", "more", "my", "no", "not", "now",
	"of", "on", "one", "or", "our", "out", "said", "she", "so", "some", "than", "that",
	"the", "their", "them", "then", "there", "these", "they", "this", "those", "to",
	"up", "upon", "us", "very", "was", "we", "were", "what", "when", "where", "which",
	"while", "who", "whom", "why", "will", "with", "would", "you", "your",
}

var frenchStopWords = []string{
	"à", "au", "aux", "avec", "ce", "ces", "cette", "dans", "de", "des", "du", "elle",
	"elles", "en", "est", "et", "été", "être", "il", "ils", "je", "la", "le", "les",
	"leur", "leurs", "lui", "ma", "mais", "me", "même", "mes", "moi", "mon", "ne",
	"nos", "notre", "nous", "on", "ou", "où", "par", "pas", "pour", "qu", "que", "qui",
	"sa", "se", "ses", "son", "sur", "ta", "te", "tes", "toi", "ton", "tu", "un", "une",
	"vos", "votre", "vous", "y",
}
