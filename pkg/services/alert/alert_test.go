package alert

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Publish(ctx context.Context, subject, body string) error {
	return m.Called(subject, body).Error(0)
}

type MockSNS struct {
	mock.Mock
}

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func sample() Alert {
	return Alert{
		ScanID:  "scan-1",
		Region:  "eu-west-1",
		Summary: domain.NewScanSummary(1, 1),
		ByType: map[domain.ResourceType]domain.TypeTotals{
			domain.ResourceTypeBucket:   {Total: 2, Compliant: 1, NonCompliant: 1},
			domain.ResourceTypeFunction: {},
		},
		CategoryCounts: map[string]int{"missing-required-tags": 1},
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes when non-compliant", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("Publish", "Compliance alert: 1 non-compliant resources in eu-west-1", mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "Non-compliant resources: 1 of 2") &&
				assert.Contains(t, body, "bucket: 1 non-compliant of 2") &&
				assert.Contains(t, body, "missing-required-tags: 1")
		})).Return(nil).Once()

		sent, err := NewDispatcher(transport).Dispatch(ctx, sample())
		require.NoError(t, err)
		assert.True(t, sent)
		transport.AssertExpectations(t)
	})

	t.Run("silent when compliant", func(t *testing.T) {
		transport := new(MockTransport)
		a := sample()
		a.Summary = domain.NewScanSummary(0, 0)

		sent, err := NewDispatcher(transport).Dispatch(ctx, a)
		require.NoError(t, err)
		assert.False(t, sent)
		transport.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("transport failure", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("Publish", mock.Anything, mock.Anything).Return(errors.New("unreachable")).Once()

		sent, err := NewDispatcher(transport).Dispatch(ctx, sample())
		assert.ErrorContains(t, err, "unreachable")
		assert.False(t, sent)
		transport.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("nil dispatcher", func(t *testing.T) {
		var d *Dispatcher
		sent, err := d.Dispatch(ctx, sample())
		assert.NoError(t, err)
		assert.False(t, sent)
	})
}

func TestSNSTransport(t *testing.T) {
	_, err := NewSNSTransport(new(MockSNS), "")
	assert.Error(t, err)

	client := new(MockSNS)
	client.On("Publish", mock.MatchedBy(func(in *sns.PublishInput) bool {
		return awssdk.ToString(in.TopicArn) == "arn:aws:sns:eu-west-1:1:compliance" &&
			len(awssdk.ToString(in.Subject)) == maxSubjectLength &&
			awssdk.ToString(in.Message) == "body"
	})).Return(&sns.PublishOutput{}, nil)

	transport, err := NewSNSTransport(client, "arn:aws:sns:eu-west-1:1:compliance")
	require.NoError(t, err)
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, transport.Publish(context.Background(), string(long), "body"))
	client.AssertExpectations(t)
}
