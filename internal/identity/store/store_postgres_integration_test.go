//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"benefid/internal/identity/models"
	"benefid/internal/identity/phonetic"
	"benefid/internal/identity/store"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
	"benefid/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "identities")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newIdentity(first, last string) *models.Identity {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Identity{
		ID:             id.NewIdentityID(),
		FirstName:      first,
		LastName:       last,
		BirthDate:      time.Date(1984, 3, 9, 0, 0, 0, 0, time.UTC),
		PhoneticCode:   phonetic.Code(last),
		JurisdictionID: id.NewJurisdictionID(),
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *PostgresStoreSuite) TestResolveExactCreatesThenFinds() {
	ctx := context.Background()

	first, created, err := s.store.ResolveExact(ctx, s.newIdentity("Maria", "Silva"))
	s.Require().NoError(err)
	s.True(created)

	again, created, err := s.store.ResolveExact(ctx, s.newIdentity("maria", "SILVA"))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, again.ID)
}

func (s *PostgresStoreSuite) TestResolveExactConcurrentSameTriple() {
	ctx := context.Background()
	const writers = 16

	ids := make([]id.IdentityID, writers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			identity, _, err := s.store.ResolveExact(gctx, s.newIdentity("Omar", "Haddad"))
			if err != nil {
				return err
			}
			ids[i] = identity.ID
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	for _, got := range ids[1:] {
		s.Equal(ids[0], got)
	}

	var count int
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM identities`).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestListActiveByPhoneticCodeSkipsInactive() {
	ctx := context.Background()

	kept, _, err := s.store.ResolveExact(ctx, s.newIdentity("Jon", "Meyer"))
	s.Require().NoError(err)
	retired, _, err := s.store.ResolveExact(ctx, s.newIdentity("Jonathan", "Meyer"))
	s.Require().NoError(err)
	_, _, err = s.store.ResolveExact(ctx, s.newIdentity("Ana", "Silva"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetActive(ctx, retired.ID, false, time.Now().UTC()))

	matches, err := s.store.ListActiveByPhoneticCode(ctx, phonetic.Code("Meyer"))
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(kept.ID, matches[0].ID)
}

func (s *PostgresStoreSuite) TestSetActiveUnknownIdentity() {
	err := s.store.SetActive(context.Background(), id.NewIdentityID(), false, time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
