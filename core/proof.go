package core

import "strings"

// idLabel separates the description from the challenge id in a proof message.
const idLabel = "\nId: "

// ProofMessageFactory builds the human-readable text a wallet owner signs.
//
// The description should be a short explanation of the signature request,
// for example "Wallet ownership proof for token attribution at XY web-shop."
// The id is appended verbatim, so it must come from an alphabet without
// newlines (challenge ids are hex).
type ProofMessageFactory struct {
	description string
	prefix      string
}

// NewProofMessageFactory creates a factory for the given description
func NewProofMessageFactory(description string) *ProofMessageFactory {
	return &ProofMessageFactory{
		description: description,
		prefix:      description + idLabel,
	}
}

// Description returns the static description of the factory
func (f *ProofMessageFactory) Description() string {
	return f.description
}

// Create returns the message embedding the given challenge id
func (f *ProofMessageFactory) Create(id string) string {
	return f.prefix + id
}

// ExtractID recovers the challenge id from a message produced by Create.
// The message must start with the exact description and label and carry a
// non-empty id after them.
func (f *ProofMessageFactory) ExtractID(message string) (string, bool) {
	if len(message) <= len(f.prefix) || !strings.HasPrefix(message, f.prefix) {
		return "", false
	}
	return message[len(f.prefix):], true
}
