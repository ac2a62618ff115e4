package repomanager

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/users"
)

// MemoryDSN selects the in-process repositories instead of PostgreSQL.
const MemoryDSN = "memory://"

// RepositoryManager vends the stores of the auth core and owns their
// underlying connection.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Certificates() certificates.Repository
	Close() error
}

// New picks the backend by DSN: MemoryDSN yields the in-memory manager,
// anything else is handed to the pgx driver.
func New(ctx context.Context, dsn string) (RepositoryManager, error) {
	if strings.HasPrefix(dsn, MemoryDSN) {
		return NewInMemoryRepositoryManager(), nil
	}
	return OpenPostgres(ctx, dsn)
}
