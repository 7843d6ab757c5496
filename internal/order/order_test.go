package order

//go:generate mockgen -source=../transport/client.go -destination=../transport/mocks/mocks.go -package=mocks Doer

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"diagflow/internal/actor"
	"diagflow/internal/platform/logger"
	"diagflow/internal/platform/metrics"
	"diagflow/internal/transport"
	"diagflow/internal/transport/mocks"
	dErrors "diagflow/pkg/domain-errors"
)

type OrderSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	doer    *mocks.MockDoer
	actors  *actor.InMemoryStore
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderSuite))
}

func (s *OrderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.doer = mocks.NewMockDoer(s.ctrl)
	s.actors = actor.NewInMemoryStore()
	s.metrics = metrics.New()
	s.ctx = context.Background()
	s.service = NewService(s.doer, s.actors, WithLogger(logger.Discard()), WithMetrics(s.metrics))
	s.Require().NoError(actor.SetAll(s.ctx, s.actors, actor.Member, map[actor.Field]string{
		actor.Token:  "tok",
		actor.UserID: "u1",
	}))
}

func (s *OrderSuite) TestCreate() {
	s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req transport.Request) (*transport.Response, error) {
			s.Equal(createPath, req.Path)
			s.Equal(transport.AuthBearer, req.Auth)
			s.Equal(createRequest{UserID: "u1"}, req.Body)
			return &transport.Response{Status: http.StatusOK, Body: []byte(`{"success":true,"msg":"Order Created Successfully",
				"data":{"id":"order_A1","amount":45000,"amount_due":45000,"currency":"INR","status":"created","key_id":"rzp_test_1",
				"mobile":"9876543210","notes":{"user_id":"u1","mobile":"9876543210","slot_guid":"s3"}}}`)}, nil
		})

	o, err := s.service.Create(s.ctx, actor.Member)
	s.Require().NoError(err)
	s.Equal(Order{
		Message: "Order Created Successfully", ID: "order_A1", Amount: 45000, AmountDue: 45000,
		Currency: "INR", Status: "created", KeyID: "rzp_test_1", Mobile: "9876543210",
		Notes: Notes{UserID: "u1", Mobile: "9876543210", SlotGUID: "s3", Present: true},
	}, o)

	id, err := s.actors.Get(s.ctx, actor.Member, actor.OrderID)
	s.Require().NoError(err)
	s.Equal("order_A1", id)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OrdersCreated))
}

func (s *OrderSuite) TestFailures() {
	s.Run("success false", func() {
		s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).Return(&transport.Response{Status: http.StatusOK, Body: []byte(`{"success":false}`)}, nil)
		_, err := s.service.Create(s.ctx, actor.Member)
		s.True(dErrors.HasCode(err, dErrors.CodePayloadShape))
	})

	s.Run("no order id", func() {
		s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).Return(&transport.Response{Status: http.StatusOK, Body: []byte(`{"success":true,"data":{}}`)}, nil)
		_, err := s.service.Create(s.ctx, actor.Member)
		s.True(dErrors.HasCode(err, dErrors.CodePayloadShape))
		_, getErr := s.actors.Get(s.ctx, actor.Member, actor.OrderID)
		s.Error(getErr)
	})

	s.Run("no cart user", func() {
		_, err := s.service.Create(s.ctx, actor.NewUser)
		s.True(dErrors.HasCode(err, dErrors.CodeContextMissing))
	})
}
