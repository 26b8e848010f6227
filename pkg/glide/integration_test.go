package glide_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/ajitpratap0/glidetables/pkg/glide"
	"github.com/ajitpratap0/glidetables/pkg/json"
	"github.com/ajitpratap0/glidetables/pkg/tables"
	"github.com/ajitpratap0/glidetables/pkg/testutil"
)

type workflowSuite struct {
	testutil.GlideSuite
	client *glide.Client
}

func TestWorkflowSuite(t *testing.T) {
	testutil.IntegrationTest(t)
	suite.Run(t, new(workflowSuite))
}

func (s *workflowSuite) SetupTest() {
	s.GlideSuite.SetupTest()

	cfg := s.Server.Config()
	cfg.Mutations.MaxMutations = 4
	client, err := glide.New(cfg, glide.WithLogger(s.Logger))
	s.Require().NoError(err)
	s.client = client
}

func (s *workflowSuite) TearDownTest() {
	_ = s.client.Close()
	s.GlideSuite.TearDownTest()
}

func (s *workflowSuite) TestCreateThenAppend() {
	ctx := s.Context()

	table, ids, err := s.client.CreateBigTable(ctx, "People", testutil.PeopleColumns(), testutil.People(10))
	s.Require().NoError(err)
	s.Equal("new-table", table.ID())
	s.Len(ids, 10)

	more, err := table.AddRows(ctx, testutil.People(2))
	s.Require().NoError(err)
	s.Equal([]string{"row-10", "row-11"}, more)

	reqs := s.Server.Requests()
	// create carries 4 rows and the other 6 follow in two chunks
	s.Require().Len(reqs, 4)
	s.Equal("/tables", reqs[0].Path)
	s.Equal("/tables/new-table/rows", reqs[1].Path)
	s.Equal("/tables/new-table/rows", reqs[3].Path)

	var rows []map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(reqs[3].Body), &rows))
	s.Equal("Person_0", rows[0]["first_name"])
	s.Equal("", rows[0]["email"])
}

func (s *workflowSuite) TestCreatePartialFailureKeepsTable() {
	s.Server.FailRequest(3, http.StatusInternalServerError)

	table, ids, err := s.client.CreateBigTable(s.Context(), "People", testutil.PeopleColumns(), testutil.People(10))
	s.Require().Error(err)
	s.Nil(ids)
	s.Require().NotNil(table)
	s.Equal("new-table", table.ID())
	s.True(errors.IsType(err, errors.ErrorTypePartialBatch))
	s.Len(s.Server.Requests(), 3)
}

func (s *workflowSuite) TestStashOverwrite() {
	ctx := s.Context()
	s.Server.CommitRows = 6

	table := s.client.BigTable(glideProps())
	stash := table.CreateStash()
	s.Require().NoError(stash.Append(ctx, testutil.People(3)))
	s.Require().NoError(stash.Append(ctx, testutil.People(3)))

	ids, err := stash.CommitAsOverwrite(ctx)
	s.Require().NoError(err)
	s.Len(ids, 6)

	reqs := s.Server.Requests()
	s.Require().Len(reqs, 3)
	s.Equal("/stashes/"+stash.ID()+"/0", reqs[0].Path)
	s.Equal("/stashes/"+stash.ID()+"/1", reqs[1].Path)
	s.Equal("/tables/people", reqs[2].Path)
	s.JSONEq(`{"$stashID":"`+stash.ID()+`"}`, reqs[2].Body)
}

func (s *workflowSuite) TestCreateFromStash() {
	ctx := s.Context()
	staging := s.client.BigTable(glideProps())
	stash := staging.CreateStash()
	s.Require().NoError(stash.Append(ctx, testutil.People(2)))

	table, ids, err := s.client.CreateBigTableFromStash(ctx, "Copy", testutil.PeopleColumns(), stash)
	s.Require().NoError(err)
	s.Equal("new-table", table.ID())
	s.Len(ids, 2)
}

func glideProps() tables.Props {
	return tables.Props{ID: "people", Name: "People", Columns: testutil.PeopleColumns()}
}
