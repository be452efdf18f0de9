package report

import (
	"context"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// Publisher renders the structured report and hands it to a sink.
type Publisher struct {
	sink   Sink
	prefix string
}

func NewPublisher(sink Sink, prefix string) *Publisher {
	return &Publisher{sink: sink, prefix: prefix}
}

func (p *Publisher) Publish(ctx context.Context, r *domain.Report) (string, error) {
	content, err := JSON(r)
	if err != nil {
		return "", err
	}
	return p.sink.Write(ctx, ArchiveKey(p.prefix, r.AnalysisTimestamp), content, ContentTypeJSON)
}
