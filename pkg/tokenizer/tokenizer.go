package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// BPE ranks ship with the binary; counting never touches the network.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter returns the number of tokens in text. Implementations must be
// deterministic.
type Counter interface {
	Count(text string) int
}

// BPE counts tokens with a tiktoken encoding (r50k_base matches the GPT-3
// tokenizer).
type BPE struct {
	enc *tiktoken.Tiktoken
}

func NewBPE(encoding string) (*BPE, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &BPE{enc: enc}, nil
}

func (b *BPE) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(b.enc.Encode(text, nil, nil))
}

// Estimate provides a rough token count when no encoding is available.
type Estimate struct{}

func (Estimate) Count(text string) int {
	// Roughly three words to every four tokens in English text.
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	return max(len(words)*4/3, 1)
}
