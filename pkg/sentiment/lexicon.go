package sentiment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	errs "twitsent/pkg/errors"
)

// Lexicon maps a lowercase word to its valence, roughly in [-4, 4].
type Lexicon map[string]float64

var builtin = Lexicon{
	"abandon": -1.9, "accept": 1.6, "afraid": -2.2, "agree": 1.5, "alarm": -1.4,
	"alive": 1.6, "amazing": 2.8, "anger": -2.7, "angry": -2.3, "anxious": -1.0,
	"anxiety": -0.7, "awesome": 3.1, "awful": -2.0, "bad": -2.5, "beautiful": 2.9,
	"best": 3.2, "better": 1.9, "blame": -1.4, "bless": 1.8, "boring": -1.3,
	"brave": 2.4, "broken": -2.1, "calm": 1.3, "care": 2.2, "celebrate": 2.7,
	"chaos": -2.7, "cheer": 2.3, "clean": 1.7, "comfort": 1.5, "confident": 2.2,
	"confused": -1.3, "crazy": -1.4, "crisis": -3.1, "cry": -2.1, "cure": 1.2,
	"damage": -2.2, "danger": -2.4, "dangerous": -2.1, "dead": -3.3, "death": -2.9,
	"die": -2.9, "died": -2.6, "disaster": -3.1, "disgusting": -2.4, "dying": -2.9,
	"easy": 1.9, "enjoy": 2.2, "excellent": 2.7, "excited": 1.4, "fail": -2.5,
	"failed": -2.3, "failure": -2.3, "fake": -2.0, "fantastic": 2.6, "fear": -2.2,
	"fight": -1.6, "fine": 0.8, "free": 2.3, "friend": 2.2, "fun": 2.3,
	"funny": 1.9, "glad": 2.0, "good": 1.9, "great": 3.1, "grief": -2.2,
	"happy": 2.7, "harm": -2.5, "hate": -2.7, "healthy": 1.7, "help": 1.7,
	"helpful": 1.8, "hero": 2.6, "heroes": 2.3, "hope": 1.9, "hopeful": 1.6,
	"horrible": -2.5, "hurt": -2.4, "ill": -1.8, "kill": -3.7, "killed": -3.5,
	"kind": 2.4, "lie": -1.6, "lies": -1.8, "lonely": -1.5, "lose": -1.6,
	"loss": -1.3, "lost": -1.3, "love": 3.2, "loved": 2.9, "lucky": 1.8,
	"mad": -2.2, "miss": -0.6, "nice": 1.8, "outrage": -2.3, "pain": -2.3,
	"panic": -2.3, "peace": 2.5, "perfect": 2.7, "pleased": 1.9, "poor": -2.1,
	"positive": 2.6, "pretty": 2.2, "problem": -1.7, "protect": 1.3, "proud": 2.1,
	"recover": 1.3, "relief": 2.1, "risk": -1.1, "sad": -2.1, "safe": 1.9,
	"safety": 1.8, "scared": -1.9, "scary": -2.2, "shame": -2.1, "shock": -1.6,
	"sick": -2.3, "smart": 1.7, "sorry": -0.3, "strong": 2.3, "stupid": -2.4,
	"success": 2.7, "suffer": -2.5, "support": 1.7, "sure": 1.3, "terrible": -2.1,
	"terrified": -3.0, "thank": 1.5, "thanks": 1.9, "threat": -2.4, "tired": -1.9,
	"tragedy": -3.4, "tragic": -3.1, "trust": 2.3, "ugly": -2.3, "upset": -1.6,
	"useless": -1.8, "victim": -2.4, "war": -2.9, "warm": 0.9, "weak": -1.9,
	"welcome": 2.0, "win": 2.8, "wonderful": 2.7, "worried": -1.2, "worry": -1.9,
	"worse": -2.1, "worst": -3.1, "wow": 2.8, "wrong": -2.1, "yes": 1.7,
}

// DefaultLexicon returns a copy of the built-in lexicon.
func DefaultLexicon() Lexicon {
	out := make(Lexicon, len(builtin))
	for k, v := range builtin {
		out[k] = v
	}
	return out
}

// LoadLexicon reads tab-separated lines of word and valence. Extra columns are
// ignored, as are blank lines and lines starting with '#'.
func LoadLexicon(r io.Reader) (Lexicon, error) {
	lex := make(Lexicon)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, &errs.Error{Type: errs.ErrorTypeParsing, Message: fmt.Sprintf("lexicon line %d: expected word and valence", line)}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, &errs.Error{Type: errs.ErrorTypeParsing, Message: fmt.Sprintf("lexicon line %d: %v", line, err)}
		}
		lex[strings.ToLower(strings.TrimSpace(fields[0]))] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	if len(lex) == 0 {
		return nil, errs.Validation("lexicon is empty")
	}
	return lex, nil
}

// LoadLexiconFile reads a lexicon from path.
func LoadLexiconFile(path string) (Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening lexicon: %w", err)
	}
	defer f.Close()
	return LoadLexicon(f)
}

var boosters = map[string]float64{
	"absolutely": boosterIncrement, "completely": boosterIncrement, "extremely": boosterIncrement,
	"highly": boosterIncrement, "incredibly": boosterIncrement, "really": boosterIncrement,
	"so": boosterIncrement, "totally": boosterIncrement, "very": boosterIncrement,
	"most": boosterIncrement, "more": boosterIncrement, "too": boosterIncrement,
	"barely": -boosterIncrement, "hardly": -boosterIncrement, "kinda": -boosterIncrement,
	"less": -boosterIncrement, "little": -boosterIncrement, "slightly": -boosterIncrement,
	"somewhat": -boosterIncrement,
}

var negations = set(
	"aint", "arent", "cannot", "cant", "couldnt", "didnt", "doesnt", "dont",
	"hadnt", "hasnt", "havent", "isnt", "neither", "never", "no", "nobody",
	"none", "nor", "not", "nothing", "nowhere", "shouldnt", "wasnt", "werent",
	"without", "wont", "wouldnt",
)

// English stopwords. Negations, boosters and "but" are kept because they change
// the score of the words around them.
var stopwords = set(
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
	"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she", "her",
	"hers", "herself", "it", "its", "itself", "they", "them", "their", "theirs",
	"themselves", "what", "which", "who", "whom", "this", "that", "these", "those",
	"am", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"having", "do", "does", "did", "doing", "a", "an", "the", "and", "if", "or",
	"because", "as", "until", "while", "of", "at", "by", "for", "with", "about",
	"against", "between", "into", "through", "during", "before", "after", "above",
	"below", "to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where", "why",
	"how", "all", "any", "both", "each", "few", "other", "some", "such", "only",
	"own", "same", "than", "s", "t", "can", "will", "just", "should", "now", "d",
	"ll", "m", "o", "re", "ve", "y",
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
