package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tirehub/internal/domain"
	"tirehub/internal/templates"
)

type MockEmailProvider struct {
	mock.Mock
}

func (m *MockEmailProvider) Send(ctx context.Context, n EmailNotification) error {
	return m.Called(ctx, n).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendLowStockAlert(ctx context.Context, recipients []domain.User, alert LowStockAlert) error {
	return m.Called(ctx, recipients, alert).Error(0)
}

func admins(n int) []domain.User {
	users := make([]domain.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, domain.User{ID: int64(i + 1), Email: gofakeit.Email(), Role: domain.RoleAdmin})
	}
	return users
}

func sampleAlert() LowStockAlert {
	return LowStockAlert{
		GeneratedAt: time.Date(2025, 1, 9, 6, 0, 0, 0, time.UTC),
		Parts: []domain.Part{
			{ID: 3, SKU: "OIL-5W30-4L", Name: "Synthetic 5W-30 4L", StockQuantity: 1, MinStockLevel: 5},
			{ID: 8, SKU: "FLT-AIR-22", Name: "Air Filter 22", StockQuantity: 0, MinStockLevel: 2},
		},
	}
}

func TestEmailNotifier(t *testing.T) {
	t.Parallel()

	renderer, err := templates.NewManager("", false)
	require.NoError(t, err)

	recipients := admins(2)
	recipients = append(recipients, domain.User{ID: 99, Role: domain.RoleAdmin})
	recipients = append(recipients, recipients[0])

	provider := &MockEmailProvider{}
	provider.On("Send", mock.Anything, mock.MatchedBy(func(n EmailNotification) bool {
		return len(n.To) == 2 &&
			n.To[0] == recipients[0].Email &&
			n.Subject == "Low stock alert: 2 parts at or below minimum"
	})).Return(nil).Once()

	require.NoError(t, NewEmailNotifier(provider, renderer).SendLowStockAlert(context.Background(), recipients, sampleAlert()))
	provider.AssertExpectations(t)
}

func TestEmailNotifierWithoutAddressesSendsNothing(t *testing.T) {
	t.Parallel()

	renderer, err := templates.NewManager("", false)
	require.NoError(t, err)

	provider := &MockEmailProvider{}
	err = NewEmailNotifier(provider, renderer).SendLowStockAlert(context.Background(), []domain.User{{ID: 1}}, sampleAlert())
	require.NoError(t, err)
	provider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestKafkaNotifierPublishesEvent(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	recipients := admins(3)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "inventory.alerts" {
			return errors.New("wrong topic " + msg.Topic)
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var event LowStockEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return err
		}
		if event.Type != EventLowStock || len(event.Parts) != 2 || len(event.Recipients) != 3 {
			return errors.New("unexpected event payload")
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != event.EventID {
			return errors.New("key must be the event id")
		}
		return nil
	})

	err := NewKafkaNotifier(producer, "inventory.alerts").SendLowStockAlert(context.Background(), recipients, sampleAlert())
	require.NoError(t, err)
}

func TestKafkaNotifierReturnsProducerError(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := NewKafkaNotifier(producer, "inventory.alerts").SendLowStockAlert(context.Background(), admins(1), sampleAlert())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestCompositeNotifier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recipients := admins(1)
	alert := sampleAlert()

	email := &MockNotifier{}
	events := &MockNotifier{}
	email.On("SendLowStockAlert", ctx, recipients, alert).Return(errors.New("smtp down")).Once()
	events.On("SendLowStockAlert", ctx, recipients, alert).Return(nil).Once()

	err := NewCompositeNotifier(email, events).SendLowStockAlert(ctx, recipients, alert)
	require.Error(t, err)
	assert.ErrorContains(t, err, "smtp down")
	email.AssertExpectations(t)
	events.AssertExpectations(t)

	emailOnly := &MockNotifier{}
	emailOnly.On("SendLowStockAlert", ctx, recipients, alert).Return(nil).Once()
	require.NoError(t, NewCompositeNotifier(emailOnly, nil).SendLowStockAlert(ctx, recipients, alert))
	emailOnly.AssertExpectations(t)
}
