package driver

import "github.com/google/uuid"

// Token is the handle an async caller uses to cancel a streaming request:
// {pool_tag, driver_identity} from spec.md §3.
type Token struct {
	PoolTag string
	id      uuid.UUID
}

func newToken(poolTag string) Token {
	return Token{PoolTag: poolTag, id: uuid.New()}
}

// String renders the driver identity half of the token for logging.
func (t Token) String() string {
	return t.PoolTag + "/" + t.id.String()
}
