package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetbook-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	args := m.Called(ctx, toEmail, toName, subject, body)
	return args.Error(0)
}

func TestEmailNotifier(t *testing.T) {
	ctx := context.Background()
	code := "SPRING10"
	customer := &domain.Customer{ID: 7, Name: "Ada", Email: "ada@example.com"}
	booking := &domain.Booking{
		Reference:           "BK-7Q2X",
		PickupAt:            time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		ReturnAt:            time.Date(2026, 6, 5, 10, 0, 0, 0, time.UTC),
		DurationDays:        4,
		BasePriceCents:      20000,
		Extras:              []domain.BookingExtra{{Name: "GPS", Quantity: 1, TotalCents: 4000}},
		DiscountCode:        &code,
		DiscountAmountCents: 2400,
		TotalCents:          21600,
	}

	t.Run("Confirmed", func(t *testing.T) {
		sender := new(MockSender)
		sender.On("Send", ctx, "ada@example.com", "Ada", "Booking BK-7Q2X confirmed", mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "Total: 216.00") &&
				assert.Contains(t, body, "Discount SPRING10: -24.00") &&
				assert.Contains(t, body, "GPS x1: 40.00")
		})).Return(nil)

		err := NewEmailNotifier(sender).BookingConfirmed(ctx, customer, booking)
		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("CancelledWithReason", func(t *testing.T) {
		sender := new(MockSender)
		cancelled := *booking
		cancelled.CancelReason = "hold expired"
		sender.On("Send", ctx, "ada@example.com", "Ada", "Booking BK-7Q2X cancelled", mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "Reason: hold expired")
		})).Return(errors.New("smtp down"))

		err := NewEmailNotifier(sender).BookingCancelled(ctx, customer, &cancelled)
		assert.EqualError(t, err, "smtp down")
	})

	t.Run("NoAddress", func(t *testing.T) {
		sender := new(MockSender)
		err := NewEmailNotifier(sender).BookingConfirmed(ctx, &domain.Customer{Name: "Walk-in"}, booking)
		assert.NoError(t, err)
		sender.AssertNotCalled(t, "Send")
	})
}
