package catalog

//go:generate mockgen -source=../transport/client.go -destination=../transport/mocks/mocks.go -package=mocks Doer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"diagflow/internal/actor"
	"diagflow/internal/platform/logger"
	"diagflow/internal/registry"
	"diagflow/internal/transport"
	"diagflow/internal/transport/mocks"
	dErrors "diagflow/pkg/domain-errors"
)

type SearchSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	doer     *mocks.MockDoer
	actors   *actor.InMemoryStore
	searcher *Searcher
	ctx      context.Context
}

func TestSearchSuite(t *testing.T) {
	suite.Run(t, new(SearchSuite))
}

func (s *SearchSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.doer = mocks.NewMockDoer(s.ctrl)
	s.actors = actor.NewInMemoryStore()
	s.ctx = context.Background()

	reg := registry.New()
	reg.Store(registry.Location, "Madhapur", registry.Entry{ID: "L1"})
	s.searcher = NewSearcher(s.doer, s.actors, reg, WithLogger(logger.Discard()))
	s.Require().NoError(s.actors.Set(s.ctx, actor.Member, actor.Token, "tok"))
}

func (s *SearchSuite) respond(body string) {
	s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req transport.Request) (*transport.Response, error) {
			s.Equal(searchRequest{Page: 1, Limit: 50, SearchString: "blood", SortBy: "Type", Location: "L1"}, req.Body)
			s.Equal(transport.AuthBearer, req.Auth)
			s.Equal(searchPath, req.Path)
			return &transport.Response{Method: http.MethodPost, Path: searchPath, Status: http.StatusOK, Body: []byte(body)}, nil
		})
}

func (s *SearchSuite) TestEligibleItemIsSelected() {
	s.respond(`{"data":[
		{"_id":"i1","test_name":"Blood Coagulation","price":450,"home_collection":"AVAILABLE"},
		{"_id":"i2","test_name":"Blood Sugar","price":100,"home_collection":"AVAILABLE"}]}`)

	res, err := s.searcher.Search(s.ctx, actor.Member, []string{"Blood Coagulation"}, "Madhapur")
	s.Require().NoError(err)
	s.Equal("blood", res.Keyword)
	s.Len(res.Raw, 2)
	s.Require().Len(res.Eligible, 1)
	s.Equal("i1", res.Eligible[0].InternalID)
	s.Empty(res.Missing)
	s.Equal(res.Eligible, s.searcher.Eligible(actor.Member))
}

func (s *SearchSuite) TestIneligibleItemsAreExcludedButKept() {
	s.respond(`{"data":[{"_id":"i1","test_name":"blood coagulation","home_collection":"NOT AVAILABLE"}]}`)

	res, err := s.searcher.Search(s.ctx, actor.Member, []string{"Blood Coagulation"}, "Madhapur")
	s.Require().NoError(err)
	s.Len(res.Items, 1, "match is case-insensitive")
	s.Empty(res.Eligible)
	s.Len(res.Raw, 1)
}

func (s *SearchSuite) TestMissingNameContinues() {
	s.respond(`{"data":[{"_id":"i2","test_name":"Blood Sugar","home_collection":true}]}`)

	res, err := s.searcher.Search(s.ctx, actor.Member, []string{"Blood Coagulation", "Blood Sugar"}, "Madhapur")
	s.Require().NoError(err)
	s.Equal([]string{"Blood Coagulation"}, res.Missing)
	s.Require().Len(res.Eligible, 1)
	s.Equal("i2", res.Eligible[0].InternalID)
}

func (s *SearchSuite) TestSetIsReplacedWholesale() {
	s.respond(`{"data":[{"_id":"i1","test_name":"Blood Coagulation","home_collection":"YES"}]}`)
	_, err := s.searcher.Search(s.ctx, actor.Member, []string{"Blood Coagulation"}, "Madhapur")
	s.Require().NoError(err)
	s.Len(s.searcher.Eligible(actor.Member), 1)

	s.respond(`{"data":[{"_id":"i1","test_name":"Blood Coagulation","home_collection":"NO"}]}`)
	_, err = s.searcher.Search(s.ctx, actor.Member, []string{"Blood Coagulation"}, "Madhapur")
	s.Require().NoError(err)
	s.Empty(s.searcher.Eligible(actor.Member))
}

func (s *SearchSuite) TestPreconditions() {
	s.Run("unknown location", func() {
		_, err := s.searcher.Search(s.ctx, actor.Member, []string{"Blood Coagulation"}, "Nowhere")
		s.True(dErrors.HasCode(err, dErrors.CodeContextMissing))
	})

	s.Run("persona not logged in", func() {
		_, err := s.searcher.Search(s.ctx, actor.NonMember, []string{"Blood Coagulation"}, "Madhapur")
		s.True(dErrors.HasCode(err, dErrors.CodeContextMissing))
	})

	s.Run("no names", func() {
		_, err := s.searcher.Search(s.ctx, actor.Member, nil, "Madhapur")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("data is not a list", func() {
		s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).Return(
			&transport.Response{Status: http.StatusOK, Body: []byte(`{"data":null}`)}, nil)
		_, err := s.searcher.Search(s.ctx, actor.Member, []string{"Blood Coagulation"}, "Madhapur")
		s.True(dErrors.HasCode(err, dErrors.CodePayloadShape))
	})
}
