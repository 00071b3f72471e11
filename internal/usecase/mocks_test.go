package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/core/port"
)

var errNotFound = errors.New("not found")

type mockUserRepo struct {
	mu          sync.Mutex
	byID        map[string]domain.User
	createCalls int
	createErr   error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[string]domain.User{}}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return &u, nil
	}
	return nil, errNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, errNotFound
}

func (m *mockUserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Phone != nil && *u.Phone == phone {
			copied := u
			return &copied, nil
		}
	}
	return nil, errNotFound
}

func (m *mockUserRepo) PhoneExists(_ context.Context, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Phone != nil && *u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) UpdateStatus(_ context.Context, id string, status domain.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return errNotFound
	}
	u.Status = status
	m.byID[id] = u
	return nil
}

func (m *mockUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return errNotFound
	}
	u.LastLogin = &at
	m.byID[id] = u
	return nil
}

func (m *mockUserRepo) addUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
}

type mockTenantRepo struct {
	mu           sync.Mutex
	byID         map[string]domain.Tenant
	createCalls  int
	createErr    error
	existsCalls  int
	subdomainSet map[string]struct{}
}

func newMockTenantRepo() *mockTenantRepo {
	return &mockTenantRepo{
		byID:         map[string]domain.Tenant{},
		subdomainSet: map[string]struct{}{},
	}
}

func (m *mockTenantRepo) Create(_ context.Context, tenant domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[tenant.ID] = tenant
	m.subdomainSet[tenant.Subdomain] = struct{}{}
	return nil
}

func (m *mockTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byID[id]; ok {
		return &t, nil
	}
	return nil, errNotFound
}

func (m *mockTenantRepo) GetBySubdomain(_ context.Context, subdomain string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.Subdomain == subdomain {
			copied := t
			return &copied, nil
		}
	}
	return nil, errNotFound
}

func (m *mockTenantRepo) SubdomainExists(_ context.Context, subdomain string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	_, ok := m.subdomainSet[subdomain]
	return ok, nil
}

func (m *mockTenantRepo) UpdateStatus(_ context.Context, id string, status domain.TenantStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return errNotFound
	}
	t.Status = status
	m.byID[id] = t
	return nil
}

func (m *mockTenantRepo) claimSubdomain(subdomain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subdomainSet[subdomain] = struct{}{}
}

// mockUnitOfWork hands the provided repositories to fn through thin wrappers
// that record write order and enforce the users.tenant_id -> tenants.id
// reference, so an insert order the real schema would reject fails here too.
type mockUnitOfWork struct {
	tenants *mockTenantRepo
	users   *mockUserRepo
	calls   int
	err     error
	writes  []string
}

func (m *mockUnitOfWork) Do(ctx context.Context, fn func(tenants port.TenantRepository, users port.UserRepository) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(orderedTenantWrites{m.tenants, m}, orderedUserWrites{m.users, m})
}

type orderedTenantWrites struct {
	*mockTenantRepo
	uow *mockUnitOfWork
}

func (w orderedTenantWrites) Create(ctx context.Context, tenant domain.Tenant) error {
	w.uow.writes = append(w.uow.writes, "tenants.Create")
	return w.mockTenantRepo.Create(ctx, tenant)
}

type orderedUserWrites struct {
	*mockUserRepo
	uow *mockUnitOfWork
}

func (w orderedUserWrites) Create(ctx context.Context, user domain.User) error {
	if user.TenantID != nil {
		if _, err := w.uow.tenants.GetByID(ctx, *user.TenantID); err != nil {
			return fmt.Errorf("user %s references tenant %s before it was inserted", user.ID, *user.TenantID)
		}
	}
	w.uow.writes = append(w.uow.writes, "users.Create")
	return w.mockUserRepo.Create(ctx, user)
}

type memVerificationStore struct {
	mu      sync.Mutex
	entries map[string]*domain.ContactVerification
}

func newMemVerificationStore() *memVerificationStore {
	return &memVerificationStore{entries: map[string]*domain.ContactVerification{}}
}

func verificationKey(purpose domain.VerificationPurpose, contact string) string {
	return string(purpose) + ":" + contact
}

func (m *memVerificationStore) Store(_ context.Context, v domain.ContactVerification, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := v
	stored.Attempts = 0
	stored.Verified = false
	m.entries[verificationKey(v.Purpose, v.Contact)] = &stored
	return nil
}

func (m *memVerificationStore) Fetch(_ context.Context, purpose domain.VerificationPurpose, contact string) (*domain.ContactVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.entries[verificationKey(purpose, contact)]; ok {
		copied := *v
		return &copied, nil
	}
	return nil, errNotFound
}

func (m *memVerificationStore) IncrementAttempts(_ context.Context, purpose domain.VerificationPurpose, contact string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[verificationKey(purpose, contact)]
	if !ok {
		return 0, errNotFound
	}
	v.Attempts++
	return v.Attempts, nil
}

func (m *memVerificationStore) MarkVerified(_ context.Context, purpose domain.VerificationPurpose, contact string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[verificationKey(purpose, contact)]
	if !ok {
		return errNotFound
	}
	v.Verified = true
	return nil
}

func (m *memVerificationStore) Delete(_ context.Context, purpose domain.VerificationPurpose, contact string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := verificationKey(purpose, contact)
	if _, ok := m.entries[key]; !ok {
		return errNotFound
	}
	delete(m.entries, key)
	return nil
}

type mockSMSSender struct {
	mu       sync.Mutex
	messages []port.SMSMessage
	err      error
}

func (m *mockSMSSender) Send(_ context.Context, message port.SMSMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockSMSSender) sent() []port.SMSMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]port.SMSMessage(nil), m.messages...)
}

type mockEventPublisher struct {
	mu                   sync.Mutex
	tenantCreated        []domain.TenantCreatedEvent
	verificationRequests []domain.PhoneVerificationRequestedEvent
	phoneVerified        []domain.PhoneVerifiedEvent
}

func (m *mockEventPublisher) PublishTenantCreated(_ context.Context, event domain.TenantCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenantCreated = append(m.tenantCreated, event)
	return nil
}

func (m *mockEventPublisher) PublishPhoneVerificationRequested(_ context.Context, event domain.PhoneVerificationRequestedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationRequests = append(m.verificationRequests, event)
	return nil
}

func (m *mockEventPublisher) PublishPhoneVerified(_ context.Context, event domain.PhoneVerifiedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phoneVerified = append(m.phoneVerified, event)
	return nil
}

type memIdempotencyStore struct {
	mu       sync.Mutex
	payloads map[string][]byte
	getCalls int
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{payloads: map[string][]byte{}}
}

func (m *memIdempotencyStore) GetResult(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if payload, ok := m.payloads[key]; ok {
		return payload, nil
	}
	return nil, errNotFound
}

func (m *memIdempotencyStore) SaveResult(_ context.Context, key string, payload []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[key] = append([]byte(nil), payload...)
	return nil
}
