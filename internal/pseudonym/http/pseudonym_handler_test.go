package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	"github.com/allisson/pseudonyms/internal/pseudonym/http/dto"
	"github.com/allisson/pseudonyms/internal/pseudonym/usecase/mocks"
)

func setupPseudonymHandler(t *testing.T) (*PseudonymHandler, *mocks.MockPseudonymUseCase) {
	t.Helper()

	useCase := &mocks.MockPseudonymUseCase{}
	t.Cleanup(func() { useCase.AssertExpectations(t) })

	return NewPseudonymHandler(useCase, discardLogger()), useCase
}

func groupParams(groupID string) gin.Params {
	return gin.Params{{Key: "group_id", Value: groupID}}
}

func TestPseudonymHandler_GenerateHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)

		memberID := uuid.Must(uuid.NewV7())
		results := []*pseudonymDomain.GeneratedPseudonym{
			{MemberID: memberID, Pseudonym: "Brave Otter", EncryptedIdentity: cryptoDomain.CiphertextBlob{9, 9}, Created: true},
			{MemberID: memberID, Pseudonym: "Brave Otter", EncryptedIdentity: cryptoDomain.CiphertextBlob{9, 9}, Created: true},
		}
		useCase.On("GeneratePseudonyms", mock.Anything, ownerID, int64(7), []string{"alice", "alice"}).
			Return(results, nil).
			Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/groups/7/pseudonyms",
			dto.GeneratePseudonymsRequest{RealIdentifiers: []string{"alice", "alice"}},
			ownerID,
		)
		c.Params = groupParams("7")
		handler.GenerateHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.GeneratePseudonymsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Data, 2)
		assert.Equal(t, "Brave Otter", response.Data[0].Pseudonym)
		assert.Equal(t, "CQk=", response.Data[0].EncryptedIdentity)
		assert.NotContains(t, w.Body.String(), "alice")
	})

	t.Run("Error_EmptyBatch", func(t *testing.T) {
		handler, _ := setupPseudonymHandler(t)

		c, w := createTestContext(
			http.MethodPost,
			"/v1/groups/7/pseudonyms",
			dto.GeneratePseudonymsRequest{RealIdentifiers: []string{}},
			ownerID,
		)
		c.Params = groupParams("7")
		handler.GenerateHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_BatchTooLarge", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("GeneratePseudonyms", mock.Anything, ownerID, int64(7), []string{"a", "b"}).
			Return(nil, pseudonymDomain.ErrBatchTooLarge).
			Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/groups/7/pseudonyms",
			dto.GeneratePseudonymsRequest{RealIdentifiers: []string{"a", "b"}},
			ownerID,
		)
		c.Params = groupParams("7")
		handler.GenerateHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_UniquenessConflict", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("GeneratePseudonyms", mock.Anything, ownerID, int64(7), []string{"a"}).
			Return(nil, pseudonymDomain.ErrUniquenessConflict).
			Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/groups/7/pseudonyms",
			dto.GeneratePseudonymsRequest{RealIdentifiers: []string{"a"}},
			ownerID,
		)
		c.Params = groupParams("7")
		handler.GenerateHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPseudonymHandler_ListHandler(t *testing.T) {
	handler, useCase := setupPseudonymHandler(t)

	views := []*pseudonymDomain.PseudonymView{
		{
			MemberID:  uuid.Must(uuid.NewV7()),
			Pseudonym: "Calm Heron",
			Role:      pseudonymDomain.RoleParticipant,
			Status:    pseudonymDomain.StatusActive,
			JoinedAt:  time.Now().UTC(),
			Encrypted: true,
		},
	}
	useCase.On("ListPseudonyms", mock.Anything, strangerID, int64(7)).Return(views, nil).Once()

	c, w := createTestContext(http.MethodGet, "/v1/groups/7/pseudonyms", nil, strangerID)
	c.Params = groupParams("7")
	handler.ListHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response dto.ListPseudonymsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 1)
	assert.True(t, response.Data[0].Encrypted)
	assert.Nil(t, response.Data[0].RealIdentifier)
}

func TestPseudonymHandler_DecryptMappingHandler(t *testing.T) {
	key := bytes.Repeat([]byte{3}, cryptoDomain.KeySize)
	encodedKey := base64.StdEncoding.EncodeToString(key)

	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("DecryptMapping", mock.Anything, ownerID, int64(7), key).
			Return(map[string]string{"Brave Otter": "alice"}, nil).
			Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/groups/7/mapping/decrypt",
			dto.DecryptMappingRequest{Key: encodedKey},
			ownerID,
		)
		c.Params = groupParams("7")
		handler.DecryptMappingHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"mapping":{"Brave Otter":"alice"}}`, w.Body.String())
	})

	t.Run("Error_AccessDenied", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("DecryptMapping", mock.Anything, strangerID, int64(7), key).
			Return(nil, pseudonymDomain.ErrAccessDenied).
			Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/groups/7/mapping/decrypt",
			dto.DecryptMappingRequest{Key: encodedKey},
			strangerID,
		)
		c.Params = groupParams("7")
		handler.DecryptMappingHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(
			t,
			`{"error":"forbidden","message":"You don't have permission to access this resource"}`,
			w.Body.String(),
		)
	})

	malformed := map[string]string{
		"Error_ShortKey":   base64.StdEncoding.EncodeToString(key[:8]),
		"Error_NotBase64":  "not base64!",
		"Error_MissingKey": "",
	}
	for name, encoded := range malformed {
		t.Run(name, func(t *testing.T) {
			handler, useCase := setupPseudonymHandler(t)
			useCase.On("DecryptMapping", mock.Anything, ownerID, int64(7), []byte(nil)).
				Return(nil, pseudonymDomain.ErrAccessDenied).
				Once()

			c, w := createTestContext(
				http.MethodPost,
				"/v1/groups/7/mapping/decrypt",
				dto.DecryptMappingRequest{Key: encoded},
				ownerID,
			)
			c.Params = groupParams("7")
			handler.DecryptMappingHandler(c)

			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestPseudonymHandler_RenameMemberHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("RenameMember", mock.Anything, ownerID, int64(7), "Brave Otter", "carol").
			Return(&pseudonymDomain.GeneratedPseudonym{
				MemberID:          uuid.Must(uuid.NewV7()),
				Pseudonym:         "Brave Otter",
				EncryptedIdentity: cryptoDomain.CiphertextBlob{1},
			}, nil).
			Once()

		c, w := createTestContext(
			http.MethodPut,
			"/v1/groups/7/members/Brave%20Otter",
			dto.RenameMemberRequest{RealIdentifier: "carol"},
			ownerID,
		)
		c.Params = gin.Params{{Key: "group_id", Value: "7"}, {Key: "pseudonym", Value: "Brave Otter"}}
		handler.RenameMemberHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"pseudonym":"Brave Otter"`)
	})

	t.Run("Error_LostUpdate", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("RenameMember", mock.Anything, ownerID, int64(7), "Brave Otter", "carol").
			Return(nil, pseudonymDomain.ErrMemberVersionConflict).
			Once()

		c, w := createTestContext(
			http.MethodPut,
			"/v1/groups/7/members/Brave%20Otter",
			dto.RenameMemberRequest{RealIdentifier: "carol"},
			ownerID,
		)
		c.Params = gin.Params{{Key: "group_id", Value: "7"}, {Key: "pseudonym", Value: "Brave Otter"}}
		handler.RenameMemberHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPseudonymHandler_RemoveMemberHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("RemoveMember", mock.Anything, ownerID, int64(7), "Brave Otter").Return(nil).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/groups/7/members/Brave%20Otter", nil, ownerID)
		c.Params = gin.Params{{Key: "group_id", Value: "7"}, {Key: "pseudonym", Value: "Brave Otter"}}
		handler.RemoveMemberHandler(c)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("RemoveMember", mock.Anything, ownerID, int64(7), "Nobody").
			Return(pseudonymDomain.ErrMemberNotFound).
			Once()

		c, w := createTestContext(http.MethodDelete, "/v1/groups/7/members/Nobody", nil, ownerID)
		c.Params = gin.Params{{Key: "group_id", Value: "7"}, {Key: "pseudonym", Value: "Nobody"}}
		handler.RemoveMemberHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPseudonymHandler_GetMasterKeyHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("GetMasterKey", mock.Anything, ownerID, ownerID).
			Return(bytes.Repeat([]byte{1}, cryptoDomain.KeySize), nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/principals/42/master-key", nil, ownerID)
		c.Params = gin.Params{{Key: "principal_id", Value: "42"}}
		handler.GetMasterKeyHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.MasterKeyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, ownerID, response.PrincipalID)
		assert.Equal(t, base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, cryptoDomain.KeySize)), response.Key)
	})

	t.Run("Error_OtherPrincipal", func(t *testing.T) {
		handler, useCase := setupPseudonymHandler(t)
		useCase.On("GetMasterKey", mock.Anything, strangerID, ownerID).
			Return(nil, pseudonymDomain.ErrAccessDenied).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/principals/42/master-key", nil, strangerID)
		c.Params = gin.Params{{Key: "principal_id", Value: "42"}}
		handler.GetMasterKeyHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_Unauthenticated", func(t *testing.T) {
		handler, _ := setupPseudonymHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/principals/42/master-key", nil, 0)
		c.Params = gin.Params{{Key: "principal_id", Value: "42"}}
		handler.GetMasterKeyHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
