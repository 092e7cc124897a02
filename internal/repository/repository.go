package repository

import (
	"github.com/parishkit/livestream-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Connection ConnectionRepository
	Livestream LivestreamRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Connection: NewConnectionRepository(db),
		Livestream: NewLivestreamRepository(db),
	}
}
