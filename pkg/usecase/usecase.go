package usecase

import (
	"github.com/stratospay/delphi/pkg/agent/tool/core"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/service/gateway"
	"github.com/stratospay/delphi/pkg/service/recall"
	"github.com/stratospay/delphi/pkg/service/retrieval"
)

const (
	// defaultContextLimit is how many retrieval results are injected into the
	// chat context
	defaultContextLimit = 3

	// defaultMemoryBudget is the token budget handed to conversation memory
	defaultMemoryBudget = 2000
)

type UseCases struct {
	repo      interfaces.Repository
	gateway   *gateway.Service
	retrieval *retrieval.Service
	recall    *recall.Service
	directory core.MerchantDirectory

	contextLimit int
	memoryBudget int
}

type Option func(*UseCases)

// WithMerchantDirectory wires the merchant lookup backend for agent tools
func WithMerchantDirectory(directory core.MerchantDirectory) Option {
	return func(uc *UseCases) {
		uc.directory = directory
	}
}

// WithContextLimit overrides how many knowledge results feed the chat context
func WithContextLimit(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.contextLimit = n
		}
	}
}

// WithMemoryBudget overrides the conversation memory token budget
func WithMemoryBudget(tokens int) Option {
	return func(uc *UseCases) {
		if tokens > 0 {
			uc.memoryBudget = tokens
		}
	}
}

func New(repo interfaces.Repository, gw *gateway.Service, search *retrieval.Service, memory *recall.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:         repo,
		gateway:      gw,
		retrieval:    search,
		recall:       memory,
		contextLimit: defaultContextLimit,
		memoryBudget: defaultMemoryBudget,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
