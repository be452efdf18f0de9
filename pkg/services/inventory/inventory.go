package inventory

import (
	"context"
	"fmt"
	"iter"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Page is one response of a paginated listing. A nil NextToken ends the listing.
type Page struct {
	Resources []domain.ResourceDescriptor
	NextToken *string
}

// Source lists the resources of one type from the inventory.
type Source interface {
	ResourceType() domain.ResourceType
	List(ctx context.Context, token *string) (Page, error)
}

type Enumerator struct {
	sources map[domain.ResourceType]Source
}

func NewEnumerator(sources ...Source) (*Enumerator, error) {
	e := &Enumerator{
		sources: make(map[domain.ResourceType]Source),
	}

	for _, s := range sources {
		resourceType := s.ResourceType()
		if _, exists := e.sources[resourceType]; exists {
			return nil, fmt.Errorf("duplicate source for resource type: %s", resourceType)
		}
		e.sources[resourceType] = s
	}

	if len(e.sources) == 0 {
		return nil, fmt.Errorf("at least one source must be provided")
	}

	return e, nil
}

// Supports reports whether a source is registered for t.
func (e *Enumerator) Supports(t domain.ResourceType) bool {
	_, ok := e.sources[t]
	return ok
}

func (e *Enumerator) SupportedTypes() []domain.ResourceType {
	var out []domain.ResourceType
	for _, t := range domain.ResourceTypes {
		if e.Supports(t) {
			out = append(out, t)
		}
	}
	return out
}

// Enumerate returns a listing of every resource of type t.
func (e *Enumerator) Enumerate(t domain.ResourceType) *Listing {
	source, ok := e.sources[t]
	if !ok {
		return &Listing{
			resourceType: t,
			setupErr:     fmt.Errorf("%w: no source for %s", domain.ErrUnsupportedResourceType, t),
		}
	}
	return &Listing{resourceType: t, source: source}
}

// Listing is a lazy sequence of descriptors. Every call to All starts a fresh
// listing from the first page.
type Listing struct {
	resourceType domain.ResourceType
	source       Source
	setupErr     error
	err          error
}

// All yields descriptors page by page. A failing page stops the sequence and
// is reported through Err; resources already yielded remain valid.
func (l *Listing) All(ctx context.Context) iter.Seq[domain.ResourceDescriptor] {
	return func(yield func(domain.ResourceDescriptor) bool) {
		l.err = l.setupErr
		if l.err != nil {
			return
		}

		logger := zerolog.Ctx(ctx).With().Str("resource_type", l.resourceType.String()).Logger()
		seen := make(map[string]struct{})
		var token *string
		pages := 0
		for {
			if err := ctx.Err(); err != nil {
				l.err = err
				return
			}

			page, err := l.source.List(ctx, token)
			if err != nil {
				l.err = fmt.Errorf("list %s page %d: %w", l.resourceType, pages+1, err)
				return
			}
			pages++

			for _, r := range page.Resources {
				if !yield(r) {
					return
				}
			}

			if page.NextToken == nil || *page.NextToken == "" {
				logger.Debug().Int("pages", pages).Msg("enumeration finished")
				return
			}
			if _, dup := seen[*page.NextToken]; dup {
				l.err = fmt.Errorf("list %s: continuation token %q repeated", l.resourceType, *page.NextToken)
				return
			}
			seen[*page.NextToken] = struct{}{}
			token = page.NextToken
		}
	}
}

// Err returns the failure of the most recent iteration, if any.
func (l *Listing) Err() error {
	return l.err
}

func (l *Listing) ResourceType() domain.ResourceType {
	return l.resourceType
}

// Collect drains the listing.
func (l *Listing) Collect(ctx context.Context) ([]domain.ResourceDescriptor, error) {
	var out []domain.ResourceDescriptor
	for r := range l.All(ctx) {
		out = append(out, r)
	}
	return out, l.Err()
}
