package repomanager

import (
	"context"

	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps everything in process. State is lost on
// restart, so it only suits development and tests.
type InMemoryRepositoryManager struct {
	users        *users.MemoryRepository
	certificates *certificates.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:        users.NewMemoryRepository(),
		certificates: certificates.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) Certificates() certificates.Repository {
	return m.certificates
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
