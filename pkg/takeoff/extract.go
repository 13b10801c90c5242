package takeoff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// prURLPattern matches https://github.com/{owner}/{repo}/pull/{number}.
// The trailing \b rejects numbers glued to a non-digit suffix.
var prURLPattern = regexp.MustCompile(`https://github\.com/([A-Za-z0-9_.\-]+)/([A-Za-z0-9_.\-]+)/pull/([0-9]+)\b`)

// defaultMergeKeywords are the phrases that signal an intent to merge.
var defaultMergeKeywords = []string{"merge", "please merge", "can u"}

// Reference identifies a pull request by owner, repository, and number.
type Reference struct {
	Owner  string
	Repo   string
	Number int
}

func (r Reference) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Extractor scans message text for a pull request reference and a
// merge-intent signal. It is a pure function of its input and the keyword
// set it was built with.
type Extractor struct {
	keywords []*regexp.Regexp
}

// NewExtractor compiles the given merge-intent phrases into word-boundary,
// case-insensitive patterns. An empty phrase list selects the defaults.
func NewExtractor(phrases []string) (*Extractor, error) {
	if len(phrases) == 0 {
		phrases = defaultMergeKeywords
	}
	keywords := make([]*regexp.Regexp, 0, len(phrases))
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		pattern, err := regexp.Compile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compiling merge keyword %q: %w", phrase, err)
		}
		keywords = append(keywords, pattern)
	}
	return &Extractor{keywords: keywords}, nil
}

// Extract returns the referenced pull request if the text contains both a
// well-formed PR URL and a merge-intent keyword, in any order. When several
// PR URLs are present, the first well-formed occurrence wins.
func (e *Extractor) Extract(text string) (Reference, bool) {
	ref, ok := firstReference(text)
	if !ok {
		return Reference{}, false
	}
	if !e.hasMergeIntent(text) {
		return Reference{}, false
	}
	return ref, true
}

// hasMergeIntent reports whether the text matches any merge-intent keyword.
func (e *Extractor) hasMergeIntent(text string) bool {
	for _, keyword := range e.keywords {
		if keyword.MatchString(text) {
			return true
		}
	}
	return false
}

func firstReference(text string) (Reference, bool) {
	for _, match := range prURLPattern.FindAllStringSubmatch(text, -1) {
		owner, repo, digits := match[1], match[2], match[3]
		// A leading zero is not a PR number.
		if len(digits) > 1 && digits[0] == '0' {
			continue
		}
		number, err := strconv.Atoi(digits)
		if err != nil || number <= 0 {
			continue
		}
		return Reference{Owner: owner, Repo: repo, Number: number}, true
	}
	return Reference{}, false
}
