package ports

import "github.com/layer-3/tia/core"

// Tokenizer converts between sessions and the signed tokens carried by clients
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
