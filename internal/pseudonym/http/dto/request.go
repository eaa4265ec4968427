// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	customValidation "github.com/allisson/pseudonyms/internal/validation"
)

// CreateGroupRequest contains the parameters for creating a group owned by the caller.
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// Validate checks if the create group request is valid.
func (r *CreateGroupRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.RuneLength(1, pseudonymDomain.MaxGroupNameLength),
		),
	)
}

// GeneratePseudonymsRequest contains the real identifiers to pseudonymize.
// Size and length limits are enforced by the use case with its configured limits.
type GeneratePseudonymsRequest struct {
	RealIdentifiers []string `json:"real_identifiers"`
}

// Validate checks if the generate pseudonyms request is valid.
func (r *GeneratePseudonymsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RealIdentifiers,
			validation.Required,
			customValidation.EachNotBlank,
		),
	)
}

// DecryptMappingRequest carries the owner's base64-encoded master key.
type DecryptMappingRequest struct {
	Key string `json:"key"`
}

// Validate checks if the decrypt mapping request is valid.
func (r *DecryptMappingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Key,
			validation.Required,
			customValidation.Base64Key(cryptoDomain.KeySize),
		),
	)
}

// DecodeKey returns the raw key, or nil when Key is missing or malformed. Callers must
// zero it after use.
func (r *DecryptMappingRequest) DecodeKey() []byte {
	if r.Validate() != nil {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(r.Key)
	if err != nil {
		return nil
	}
	return key
}

// RenameMemberRequest contains the new real identifier of a member.
type RenameMemberRequest struct {
	RealIdentifier string `json:"real_identifier"`
}

// Validate checks if the rename member request is valid.
func (r *RenameMemberRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RealIdentifier,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}
