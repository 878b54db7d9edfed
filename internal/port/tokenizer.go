package port

// Tokenizer splits text into word tokens for lexical scoring and
// overlap math.
type Tokenizer interface {
	Tokenize(text string) []string
}
