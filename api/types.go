// Package api defines the request and response types for the tokenizer
// HTTP API.
package api

import (
	"fmt"

	"github.com/wafers3/transformers/tokenizer"
)

// TokenizeRequest maps text to token ids via POST /api/tokenize.
type TokenizeRequest struct {
	Text string `json:"text"`
}

type TokenizeResponse struct {
	Tokens []int32 `json:"tokens"`

	// TokenStrings carries the token strings alongside the ids when
	// `verbose` is requested.
	TokenStrings []string `json:"token_strings,omitempty"`
}

// DetokenizeRequest maps token ids back to text via POST /api/detokenize.
type DetokenizeRequest struct {
	Tokens []int32 `json:"tokens"`

	// SpacesBetweenSpecialTokens inserts a space around added tokens that
	// are not named specials. Off by default for this tokenizer family.
	SpacesBetweenSpecialTokens bool `json:"spaces_between_special_tokens,omitempty"`
}

type DetokenizeResponse struct {
	Text string `json:"text"`
}

// AddTokensRequest registers added tokens via POST /api/tokens.
type AddTokensRequest struct {
	Tokens []tokenizer.AddedToken `json:"tokens"`
}

type AddTokensResponse struct {
	Added int `json:"added"`
}

// VocabResponse reports the loaded vocabulary via GET /api/vocab.
type VocabResponse struct {
	Size        int                    `json:"size"`
	EOS         int32                  `json:"eos"`
	AddedTokens []tokenizer.AddedToken `json:"added_tokens,omitempty"`
}

// StatusError carries an HTTP status code alongside the error message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		return "something went wrong, please see the tokenizer server logs for details"
	}
}
