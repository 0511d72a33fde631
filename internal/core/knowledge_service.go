package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gwi.com/knsystem/internal/store"
	"gwi.com/knsystem/internal/utils"
)

const knowledgeNotFound = "Knowledge entry not found"

type KnowledgeService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewKnowledgeService(db *store.SQLiteStore, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{dbStore: db, logger: logger}
}

// KnowledgeInput is the writable part of a knowledge entry.
type KnowledgeInput struct {
	KnowledgeNumber  int64  `json:"knowledge_number"`
	Problem          string `json:"problem"`
	DetailedSolution string `json:"detailed_solution"`
	Domain           string `json:"domain"`
}

func (in KnowledgeInput) validate() error {
	if strings.TrimSpace(in.Problem) == "" || strings.TrimSpace(in.DetailedSolution) == "" {
		return validation("Problem and detailed solution are required")
	}
	return nil
}

func (s *KnowledgeService) List(ctx context.Context, f store.KnowledgeFilter, page utils.Page) (PageResult[store.Knowledge], error) {
	items, total, err := s.dbStore.ListKnowledge(ctx, f, page)
	if err != nil {
		return PageResult[store.Knowledge]{}, err
	}
	return PageResult[store.Knowledge]{Items: items, Total: total, Page: page}, nil
}

func (s *KnowledgeService) Get(ctx context.Context, id int64) (*store.Knowledge, error) {
	k, err := s.dbStore.GetKnowledge(ctx, id)
	return k, translate(err, knowledgeNotFound)
}

func (s *KnowledgeService) Create(ctx context.Context, in KnowledgeInput) (*store.Knowledge, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	k := &store.Knowledge{
		KnowledgeNumber:  in.KnowledgeNumber,
		Problem:          in.Problem,
		DetailedSolution: in.DetailedSolution,
		Domain:           in.Domain,
	}
	if err := s.dbStore.CreateKnowledge(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

func (s *KnowledgeService) Update(ctx context.Context, id int64, in KnowledgeInput) (*store.Knowledge, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	k := &store.Knowledge{
		UniqueID:         id,
		KnowledgeNumber:  in.KnowledgeNumber,
		Problem:          in.Problem,
		DetailedSolution: in.DetailedSolution,
		Domain:           in.Domain,
	}
	if err := s.dbStore.UpdateKnowledge(ctx, k); err != nil {
		return nil, translate(err, knowledgeNotFound)
	}
	return k, nil
}

func (s *KnowledgeService) Delete(ctx context.Context, id int64) error {
	return translate(s.dbStore.DeleteKnowledge(ctx, id), knowledgeNotFound)
}

func (s *KnowledgeService) Domains(ctx context.Context) ([]string, error) {
	return s.dbStore.KnowledgeDomains(ctx)
}

func (s *KnowledgeService) UniqueKnowledgeCount(ctx context.Context) (int, error) {
	return s.dbStore.UniqueKnowledgeCount(ctx)
}
