package core

import (
	"context"
	"errors"
	"math"
	"strings"

	"gwi.com/knsystem/internal/store"
)

const (
	DefaultTagColor = "#3b82f6"
	tagNotFound     = "Tag not found"
	tagNameTaken    = "Tag with this name already exists"
)

type TagsService struct {
	dbStore *store.SQLiteStore
}

func NewTagsService(db *store.SQLiteStore) *TagsService {
	return &TagsService{dbStore: db}
}

type TagStatsResult struct {
	TotalWithNotes int             `json:"totalWithNotes"`
	Tags           []store.TagStat `json:"tags"`
}

func (s *TagsService) List(ctx context.Context) ([]store.Tag, error) {
	return s.dbStore.ListTags(ctx)
}

func (s *TagsService) ensureNameFree(ctx context.Context, name string, excludeID int64) error {
	taken, err := s.dbStore.TagNameTaken(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return newError(ErrConflict, tagNameTaken)
	}
	return nil
}

func (s *TagsService) Create(ctx context.Context, name, color string) (*store.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation("Tag name is required")
	}
	if color == "" {
		color = DefaultTagColor
	}
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}
	tag, err := s.dbStore.CreateTag(ctx, name, color)
	if err != nil {
		return nil, tagWriteError(err)
	}
	return tag, nil
}

// Update renames a tag. An empty color keeps the current one.
func (s *TagsService) Update(ctx context.Context, id int64, name, color string) (*store.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation("Tag name is required")
	}
	existing, err := s.dbStore.GetTag(ctx, id)
	if err != nil {
		return nil, translate(err, tagNotFound)
	}
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}
	if color == "" {
		color = existing.Color
	}
	tag, err := s.dbStore.UpdateTag(ctx, id, name, color)
	if err != nil {
		return nil, tagWriteError(err)
	}
	return tag, nil
}

// tagWriteError covers a name taken between the check and the write.
func tagWriteError(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return newError(ErrConflict, tagNameTaken)
	}
	return translate(err, tagNotFound)
}

func (s *TagsService) Delete(ctx context.Context, id int64) error {
	return translate(s.dbStore.DeleteTag(ctx, id), tagNotFound)
}

// Stats reports, per tag, how many tagged notes mention it and what share
// of all tagged notes that is, rounded to a whole percent.
func (s *TagsService) Stats(ctx context.Context) (TagStatsResult, error) {
	total, stats, err := s.dbStore.TagStats(ctx)
	if err != nil {
		return TagStatsResult{}, err
	}
	for i := range stats {
		if total > 0 {
			stats[i].Percentage = int(math.Round(float64(stats[i].Count) / float64(total) * 100))
		}
	}
	return TagStatsResult{TotalWithNotes: total, Tags: stats}, nil
}
