package domain

import "time"

// IdentityRecord is the plaintext sealed inside an identity blob.
//
// Mapping holds real identifier to pseudonym entries. GroupID is repeated inside the
// sealed payload and checked on every decryption, so a blob copied to another group
// never opens there.
type IdentityRecord struct {
	GroupID   int64             `json:"group_id"`
	Mapping   map[string]string `json:"mapping"`
	CreatedAt time.Time         `json:"created_at"`
}
