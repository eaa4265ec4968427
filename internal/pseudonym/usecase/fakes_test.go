package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
	cryptoUsecase "github.com/allisson/pseudonyms/internal/crypto/usecase"
	"github.com/allisson/pseudonyms/internal/lock"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	pseudonymService "github.com/allisson/pseudonyms/internal/pseudonym/service"
)

var errInjected = errors.New("injected fault")

// memoryStore is an in-memory replacement for the groups and members tables.
type memoryStore struct {
	mu          sync.Mutex
	nextGroupID int64
	groups      map[int64]pseudonymDomain.Group
	members     map[uuid.UUID]pseudonymDomain.Member
	order       []uuid.UUID

	failMarkEncryptedOn int
	markEncryptedErr    error
	markEncryptedCalls  int
	afterList           func()

	// beforeCreate runs once, ahead of the next Create, to stand in for another writer.
	beforeCreate func(pending pseudonymDomain.Member)
	// committed holds rows written outside any rollback scope.
	committed []pseudonymDomain.Member
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextGroupID: 1,
		groups:      make(map[int64]pseudonymDomain.Group),
		members:     make(map[uuid.UUID]pseudonymDomain.Member),
	}
}

type storeSnapshot struct {
	groups  map[int64]pseudonymDomain.Group
	members map[uuid.UUID]pseudonymDomain.Member
	order   []uuid.UUID
}

func (s *memoryStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := make(map[int64]pseudonymDomain.Group, len(s.groups))
	for k, v := range s.groups {
		groups[k] = v
	}
	members := make(map[uuid.UUID]pseudonymDomain.Member, len(s.members))
	for k, v := range s.members {
		members[k] = v
	}
	return storeSnapshot{groups: groups, members: members, order: slices.Clone(s.order)}
}

func (s *memoryStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = snap.groups
	s.members = snap.members
	s.order = snap.order
	for _, m := range s.committed {
		if _, ok := s.members[m.ID]; !ok {
			s.members[m.ID] = m
			s.order = append(s.order, m.ID)
		}
	}
}

// commit stores a member that survives any rollback in progress.
func (s *memoryStore) commit(member pseudonymDomain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[member.ID] = member
	s.order = append(s.order, member.ID)
	s.committed = append(s.committed, member)
}

// hashTaken reports whether another member of the group already owns identityHash.
func (s *memoryStore) hashTaken(groupID int64, identityHash string, self uuid.UUID) bool {
	for id, m := range s.members {
		if id != self && m.GroupID == groupID && m.IdentityHash != nil && *m.IdentityHash == identityHash {
			return true
		}
	}
	return false
}

func (s *memoryStore) member(id uuid.UUID) pseudonymDomain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id]
}

func (s *memoryStore) groupMembers(groupID int64) []pseudonymDomain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []pseudonymDomain.Member
	for _, id := range s.order {
		if m, ok := s.members[id]; ok && m.GroupID == groupID {
			result = append(result, m)
		}
	}
	return result
}

func (s *memoryStore) bumpVersion(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.members[id]
	m.Version++
	s.members[id] = m
}

// memoryTxManager restores the store when fn fails.
type memoryTxManager struct {
	store *memoryStore
}

type memoryTxKey struct{}

func (m *memoryTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}
	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type memoryGroups struct {
	store *memoryStore
}

func (g *memoryGroups) Create(_ context.Context, group *pseudonymDomain.Group) error {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	group.ID = g.store.nextGroupID
	g.store.nextGroupID++
	g.store.groups[group.ID] = *group
	return nil
}

func (g *memoryGroups) Get(_ context.Context, groupID int64) (*pseudonymDomain.Group, error) {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	group, ok := g.store.groups[groupID]
	if !ok {
		return nil, pseudonymDomain.ErrGroupNotFound
	}
	return &group, nil
}

func (g *memoryGroups) Delete(_ context.Context, groupID int64) error {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	delete(g.store.groups, groupID)
	for id, m := range g.store.members {
		if m.GroupID == groupID {
			delete(g.store.members, id)
		}
	}
	return nil
}

func (g *memoryGroups) ListIDsWithPlaintextMembers(context.Context) ([]int64, error) {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	var ids []int64
	for _, m := range g.store.members {
		if _, ok := m.Identity.(pseudonymDomain.PlaintextIdentity); ok && !slices.Contains(ids, m.GroupID) {
			ids = append(ids, m.GroupID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

type memoryMembers struct {
	store *memoryStore
}

func (r *memoryMembers) Create(_ context.Context, member *pseudonymDomain.Member) error {
	if hook := r.store.beforeCreate; hook != nil {
		r.store.beforeCreate = nil
		hook(*member)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.members {
		if m.GroupID != member.GroupID {
			continue
		}
		if m.Pseudonym == member.Pseudonym {
			return pseudonymDomain.ErrMemberAlreadyExists
		}
		if m.IdentityHash != nil && member.IdentityHash != nil && *m.IdentityHash == *member.IdentityHash {
			return pseudonymDomain.ErrMemberAlreadyExists
		}
	}
	r.store.members[member.ID] = *member
	r.store.order = append(r.store.order, member.ID)
	return nil
}

func (r *memoryMembers) ListByGroup(_ context.Context, groupID int64) ([]*pseudonymDomain.Member, error) {
	var result []*pseudonymDomain.Member
	for _, m := range r.store.groupMembers(groupID) {
		result = append(result, &m)
	}
	if r.store.afterList != nil {
		r.store.afterList()
	}
	return result, nil
}

func (r *memoryMembers) find(groupID int64, match func(m pseudonymDomain.Member) bool) (*pseudonymDomain.Member, error) {
	for _, m := range r.store.groupMembers(groupID) {
		if match(m) {
			return &m, nil
		}
	}
	return nil, pseudonymDomain.ErrMemberNotFound
}

func (r *memoryMembers) GetByPseudonym(
	_ context.Context,
	groupID int64,
	pseudonym string,
) (*pseudonymDomain.Member, error) {
	return r.find(groupID, func(m pseudonymDomain.Member) bool { return m.Pseudonym == pseudonym })
}

func (r *memoryMembers) GetByIdentityHash(
	_ context.Context,
	groupID int64,
	identityHash string,
) (*pseudonymDomain.Member, error) {
	return r.find(groupID, func(m pseudonymDomain.Member) bool {
		return m.IdentityHash != nil && *m.IdentityHash == identityHash
	})
}

func (r *memoryMembers) GetByRealIdentifier(
	_ context.Context,
	groupID int64,
	realIdentifier string,
) (*pseudonymDomain.Member, error) {
	return r.find(groupID, func(m pseudonymDomain.Member) bool {
		got, ok := m.RealIdentifier()
		return ok && got == realIdentifier
	})
}

func (r *memoryMembers) ExistsPseudonym(ctx context.Context, groupID int64, pseudonym string) (bool, error) {
	_, err := r.GetByPseudonym(ctx, groupID, pseudonym)
	return err == nil, nil
}

func (r *memoryMembers) MarkEncrypted(
	_ context.Context,
	member *pseudonymDomain.Member,
	blob cryptoDomain.CiphertextBlob,
	identityHash string,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.markEncryptedCalls++
	if r.store.markEncryptedCalls == r.store.failMarkEncryptedOn {
		if r.store.markEncryptedErr != nil {
			return r.store.markEncryptedErr
		}
		return errInjected
	}

	stored, ok := r.store.members[member.ID]
	if !ok || stored.Version != member.Version || stored.IsEncrypted() {
		return pseudonymDomain.ErrMemberVersionConflict
	}
	if r.store.hashTaken(member.GroupID, identityHash, member.ID) {
		return pseudonymDomain.ErrMemberAlreadyExists
	}
	stored.Identity = pseudonymDomain.EncryptedIdentity{Blob: blob}
	stored.IdentityHash = &identityHash
	stored.Version++
	r.store.members[member.ID] = stored
	member.Version = stored.Version
	return nil
}

func (r *memoryMembers) UpdateIdentity(
	_ context.Context,
	member *pseudonymDomain.Member,
	blob cryptoDomain.CiphertextBlob,
	identityHash string,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.members[member.ID]
	if !ok || stored.Version != member.Version {
		return pseudonymDomain.ErrMemberVersionConflict
	}
	if r.store.hashTaken(member.GroupID, identityHash, member.ID) {
		return pseudonymDomain.ErrMemberAlreadyExists
	}
	stored.Identity = pseudonymDomain.EncryptedIdentity{Blob: blob}
	stored.IdentityHash = &identityHash
	stored.Version++
	r.store.members[member.ID] = stored
	member.Version = stored.Version
	return nil
}

func (r *memoryMembers) Delete(_ context.Context, memberID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.members, memberID)
	return nil
}

// faultyVault fails the nth Encrypt call.
type faultyVault struct {
	cryptoService.IdentityVault
	failEncryptOn int32
	calls         atomic.Int32
}

func (f *faultyVault) Encrypt(
	groupID int64,
	mapping map[string]string,
	key []byte,
) (cryptoDomain.CiphertextBlob, error) {
	if f.calls.Add(1) == f.failEncryptOn {
		return nil, errInjected
	}
	return f.IdentityVault.Encrypt(groupID, mapping, key)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []auditDomain.Event
}

func (r *recordingPublisher) Publish(_ context.Context, event *auditDomain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
}

func (r *recordingPublisher) outcomes(operation auditDomain.Operation) []auditDomain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var outcomes []auditDomain.Outcome
	for _, e := range r.events {
		if e.Operation == operation {
			outcomes = append(outcomes, e.Outcome)
		}
	}
	return outcomes
}

type fixture struct {
	store       *memoryStore
	groups      *memoryGroups
	members     *memoryMembers
	vault       *faultyVault
	kdf         cryptoService.KeyDerivation
	keys        cryptoUsecase.KeyProvider
	generator   pseudonymService.PseudonymGenerator
	publisher   *recordingPublisher
	locker      *lock.LocalLocker
	useCase     PseudonymUseCase
	coordinator *MigrationCoordinator
}

type fixtureConfig struct {
	maxAttempts  int
	maxBatchSize int
	withEpithet  bool
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithAttempts(t, 16)
}

func newFixtureWithAttempts(t *testing.T, maxAttempts int) *fixture {
	return newFixtureWithConfig(t, fixtureConfig{maxAttempts: maxAttempts, maxBatchSize: 10, withEpithet: true})
}

func newFixtureWithConfig(t *testing.T, cfg fixtureConfig) *fixture {
	t.Helper()

	pepper, err := cryptoDomain.NewPepper([]byte("test-pepper-value"))
	require.NoError(t, err)
	kdf, err := cryptoService.NewKeyDerivation(pepper, cryptoService.MinIterations)
	require.NoError(t, err)

	store := newMemoryStore()
	f := &fixture{
		store:   store,
		groups:  &memoryGroups{store: store},
		members: &memoryMembers{store: store},
		vault: &faultyVault{
			IdentityVault: cryptoService.NewIdentityVault(cryptoService.NewAEADManager(), cryptoDomain.AESGCM),
		},
		kdf:       kdf,
		keys:      cryptoUsecase.NewDerivedKeyProvider(kdf),
		generator: pseudonymService.NewGenerator(255, cfg.maxAttempts, cfg.withEpithet),
		publisher: &recordingPublisher{},
		locker:    lock.NewLocalLocker(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	txManager := &memoryTxManager{store: store}
	hasher := pseudonymService.NewIdentityHasher()
	gate := NewAccessGate(f.groups, f.members, f.keys, f.vault, f.publisher, logger)

	f.useCase = NewPseudonymUseCase(
		txManager, f.groups, f.members, gate, f.keys, f.vault, f.generator, hasher,
		Limits{MaxBatchSize: cfg.maxBatchSize, MaxRealIdentifierLength: 255},
	)
	f.coordinator = NewMigrationCoordinator(
		txManager, f.groups, f.members, gate, f.keys, f.vault, hasher, f.locker,
		MigrationOptions{LockTTL: time.Minute, Concurrency: 2},
		logger,
	)
	return f
}

// createGroup stores a group with a fixed id.
func (f *fixture) createGroup(t *testing.T, groupID, ownerPrincipalID int64) {
	t.Helper()
	f.store.nextGroupID = groupID
	require.NoError(t, f.groups.Create(context.Background(), &pseudonymDomain.Group{
		OwnerPrincipalID: ownerPrincipalID,
		Name:             "group",
		CreatedAt:        time.Now().UTC(),
	}))
}

// seedPlaintext stores members the way they existed before encryption was introduced.
func (f *fixture) seedPlaintext(t *testing.T, groupID int64, realIdentifiers ...string) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(realIdentifiers))
	for _, realIdentifier := range realIdentifiers {
		pseudonym, err := f.generator.Generate(realIdentifier, pseudonymDomain.GroupScope(groupID), 0)
		require.NoError(t, err)
		member := &pseudonymDomain.Member{
			ID:        uuid.Must(uuid.NewV7()),
			GroupID:   groupID,
			Pseudonym: pseudonym,
			Identity:  pseudonymDomain.PlaintextIdentity{RealIdentifier: realIdentifier},
			Role:      pseudonymDomain.RoleParticipant,
			Status:    pseudonymDomain.StatusActive,
			JoinedAt:  time.Now().UTC(),
			Version:   1,
		}
		require.NoError(t, f.members.Create(context.Background(), member))
		ids = append(ids, member.ID)
	}
	return ids
}

func (f *fixture) masterKey(t *testing.T, principalID int64) []byte {
	t.Helper()
	mk, err := f.kdf.DeriveMasterKey(principalID)
	require.NoError(t, err)
	return mk.Key
}

func (f *fixture) allPlaintext(groupID int64) bool {
	for _, m := range f.store.groupMembers(groupID) {
		if m.IsEncrypted() {
			return false
		}
	}
	return true
}

func (f *fixture) seedPlaintextWithPseudonym(t *testing.T, groupID int64, realIdentifier, pseudonym string) {
	t.Helper()
	require.NoError(t, f.members.Create(context.Background(), &pseudonymDomain.Member{
		ID:        uuid.Must(uuid.NewV7()),
		GroupID:   groupID,
		Pseudonym: pseudonym,
		Identity:  pseudonymDomain.PlaintextIdentity{RealIdentifier: realIdentifier},
		Role:      pseudonymDomain.RoleParticipant,
		Status:    pseudonymDomain.StatusActive,
		JoinedAt:  time.Now().UTC(),
		Version:   1,
	}))
}
