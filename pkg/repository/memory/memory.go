package memory

import (
	"github.com/stratospay/delphi/pkg/domain/interfaces"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-memory Repository for development and testing
type Memory struct {
	knowledge *knowledgeRepository
	session   *sessionRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		knowledge: newKnowledgeRepository(),
		session:   newSessionRepository(),
	}
}

func (m *Memory) Knowledge() interfaces.KnowledgeRepository {
	return m.knowledge
}

func (m *Memory) Session() interfaces.SessionRepository {
	return m.session
}

func (m *Memory) Close() error {
	return nil
}
