package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Knowledge() KnowledgeRepository
	Session() SessionRepository

	Close() error
}
