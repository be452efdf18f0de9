package inventory

import (
	"context"
	"strconv"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// StaticSource serves a fixed set of descriptors, split into pages.
type StaticSource struct {
	Type      domain.ResourceType
	Resources []domain.ResourceDescriptor
	PageSize  int
}

func (s *StaticSource) ResourceType() domain.ResourceType {
	return s.Type
}

func (s *StaticSource) List(_ context.Context, token *string) (Page, error) {
	start := 0
	if token != nil {
		n, err := strconv.Atoi(*token)
		if err != nil {
			return Page{}, err
		}
		start = n
	}
	size := s.PageSize
	if size <= 0 {
		size = len(s.Resources)
	}
	end := min(start+size, len(s.Resources))
	page := Page{Resources: s.Resources[start:end]}
	if end < len(s.Resources) {
		next := strconv.Itoa(end)
		page.NextToken = &next
	}
	return page, nil
}
