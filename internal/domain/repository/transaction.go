package repository

import "context"

// RepositoryFactory creates repository instances bound to one transaction.
type RepositoryFactory interface {
	// NewContactRepository creates a contact repository bound to the transaction.
	NewContactRepository() ContactRepository
}

// TransactionManager runs application logic within a single database
// transaction. The callback receives a factory whose repositories all share
// the transaction; returning an error rolls everything back.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(repoFactory RepositoryFactory) error) error
}
