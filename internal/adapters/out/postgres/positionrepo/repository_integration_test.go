package positionrepo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tracker/internal/adapters/out/postgres/pgtest"
	"tracker/internal/adapters/out/postgres/positionrepo"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

// PositionRepositoryIntegrationTestSuite runs the repository against a real
// PostGIS database.
type PositionRepositoryIntegrationTestSuite struct {
	suite.Suite
	database *pgtest.Database
	repo     *positionrepo.GormPositionRepository
}

func (suite *PositionRepositoryIntegrationTestSuite) SetupSuite() {
	database, err := pgtest.Start(context.Background())
	suite.Require().NoError(err)
	suite.database = database
	suite.repo = positionrepo.NewGormPositionRepository(database.DB)
}

func (suite *PositionRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.database.Truncate())
}

func (suite *PositionRepositoryIntegrationTestSuite) TearDownSuite() {
	suite.Require().NoError(suite.database.Terminate(context.Background()))
}

func (suite *PositionRepositoryIntegrationTestSuite) position(id string, lon, lat float64, at time.Time) *agent.Position {
	pos, err := agent.NewPosition(kernel.AgentID(id), agent.RoleCourier, kernel.MustNewLocation(lon, lat), at)
	suite.Require().NoError(err)
	return pos
}

func ids(positions []*agent.Position) []kernel.AgentID {
	out := make([]kernel.AgentID, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.AgentID())
	}
	return out
}

func (suite *PositionRepositoryIntegrationTestSuite) TestUpsertAndGet() {
	ctx := context.Background()
	now := time.Now()

	// Act
	err := suite.repo.Upsert(ctx, suite.position("courier-1", 10, 50, now))

	// Assert
	suite.Require().NoError(err)
	got, err := suite.repo.Get(ctx, "courier-1")
	suite.Require().NoError(err)
	suite.Equal(kernel.AgentID("courier-1"), got.AgentID())
	suite.Equal(agent.RoleCourier, got.Role())
	suite.InDelta(10.0, got.Location().Longitude(), 0)
	suite.InDelta(50.0, got.Location().Latitude(), 0)
	suite.WithinDuration(now, got.UpdatedAt(), time.Millisecond)
}

func (suite *PositionRepositoryIntegrationTestSuite) TestGet_NotFound() {
	_, err := suite.repo.Get(context.Background(), "nobody")

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *PositionRepositoryIntegrationTestSuite) TestUpsert_ReplacesPosition() {
	ctx := context.Background()
	now := time.Now()
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("courier-1", 10, 50, now)))
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("courier-1", 20, 40, now.Add(time.Second))))

	atOld, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(10, 50), 1000, agent.RoleCourier)
	suite.Require().NoError(err)
	atNew, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(20, 40), 1000, agent.RoleCourier)
	suite.Require().NoError(err)

	suite.Empty(atOld)
	suite.Equal([]kernel.AgentID{"courier-1"}, ids(atNew))
}

func (suite *PositionRepositoryIntegrationTestSuite) TestUpsert_LaterArrivalWinsOverTimestamp() {
	ctx := context.Background()
	now := time.Now()
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("courier-1", 20, 40, now)))

	// Written second with a clock that stepped back a minute.
	err := suite.repo.Upsert(ctx, suite.position("courier-1", 10, 50, now.Add(-time.Minute)))

	suite.Require().NoError(err)
	got, err := suite.repo.Get(ctx, "courier-1")
	suite.Require().NoError(err)
	suite.InDelta(10.0, got.Location().Longitude(), 0)
	suite.InDelta(50.0, got.Location().Latitude(), 0)
	suite.WithinDuration(now.Add(-time.Minute), got.UpdatedAt(), time.Millisecond)

	atNew, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(10, 50), 1000, agent.RoleCourier)
	suite.Require().NoError(err)
	suite.Equal([]kernel.AgentID{"courier-1"}, ids(atNew))
}

func (suite *PositionRepositoryIntegrationTestSuite) TestFindNearby_Scenario() {
	ctx := context.Background()
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("courier-1", 10.0, 50.0, time.Now())))

	near, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(10.0005, 50.0005), 1000, agent.RoleCourier)
	suite.Require().NoError(err)
	far, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(0, 0), 1, agent.RoleCourier)
	suite.Require().NoError(err)

	suite.Equal([]kernel.AgentID{"courier-1"}, ids(near))
	suite.NotNil(far)
	suite.Empty(far)
}

func (suite *PositionRepositoryIntegrationTestSuite) TestFindNearby_OrderedAndBounded() {
	ctx := context.Background()
	now := time.Now()
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("third", 10.003, 50, now)))
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("first", 10.001, 50, now)))
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("second", 10.002, 50, now)))
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("outside", 10.05, 50, now)))

	found, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(10, 50), 1000, agent.RoleCourier)

	suite.Require().NoError(err)
	suite.Equal([]kernel.AgentID{"first", "second", "third"}, ids(found))
}

func (suite *PositionRepositoryIntegrationTestSuite) TestFindNearby_Antimeridian() {
	ctx := context.Background()
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("west", -179.999, 0, time.Now())))

	found, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(179.999, 0), 500, agent.RoleCourier)

	suite.Require().NoError(err)
	suite.Equal([]kernel.AgentID{"west"}, ids(found))
}

func (suite *PositionRepositoryIntegrationTestSuite) TestFindNearby_ExcludesNoFixAndOtherRoles() {
	ctx := context.Background()
	suite.Require().NoError(suite.repo.Upsert(ctx, suite.position("nofix", 0, 0, time.Now())))

	found, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(0, 0), 10_000, agent.RoleCourier)
	suite.Require().NoError(err)
	suite.Empty(found)

	found, err = suite.repo.FindNearby(ctx, kernel.MustNewLocation(0, 0), 10_000, agent.RoleCustomer)
	suite.Require().NoError(err)
	suite.Empty(found)
}

func (suite *PositionRepositoryIntegrationTestSuite) TestFindNearby_InvalidRadius() {
	_, err := suite.repo.FindNearby(context.Background(), kernel.MustNewLocation(0, 0), -1, agent.RoleCourier)

	suite.Require().ErrorIs(err, errs.ErrValueIsInvalid)
}

func (suite *PositionRepositoryIntegrationTestSuite) TestUpsert_ConcurrentAgents() {
	ctx := context.Background()
	const agents = 100

	var wg sync.WaitGroup
	errCh := make(chan error, agents)
	for i := range agents {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pos, err := agent.NewPosition(
				kernel.AgentID(fmt.Sprintf("courier-%d", i)),
				agent.RoleCourier,
				kernel.MustNewLocation(10+float64(i)*0.0001, 50),
				time.Now(),
			)
			if err == nil {
				err = suite.repo.Upsert(ctx, pos)
			}
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		suite.Require().NoError(err)
	}
	found, err := suite.repo.FindNearby(ctx, kernel.MustNewLocation(10.005, 50), 5000, agent.RoleCourier)
	suite.Require().NoError(err)
	suite.Len(found, agents)
}

func TestPositionRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(PositionRepositoryIntegrationTestSuite))
}
