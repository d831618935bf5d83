package service_test

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
	"github.com/mkallio/tag-league/backend/internal/repo"
)

// memStore is a hand-written, stateful test double for the whole repo layer.
// The services under test run multi-step workflows (check state, mutate,
// recheck) that per-method function stubs cannot express, so the double
// keeps real state in maps and mimics the constraints the database enforces
// (duplicate participations, tag uniqueness). It is not concurrency-safe;
// each test builds its own.
type memStore struct {
	participations map[uuid.UUID]domain.Participation
	partOrder      []uuid.UUID
	cards          map[uuid.UUID]domain.Card
	cardOrder      []uuid.UUID
	tags           map[uuid.UUID]domain.Tag
	history        []domain.TagHistory
	rounds         map[uuid.UUID]domain.Round
	seasons        map[uuid.UUID]domain.Season
	players        map[uuid.UUID]string
	managers       map[[2]uuid.UUID]bool // (playerID, roundID)
	tagMasters     map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		participations: map[uuid.UUID]domain.Participation{},
		cards:          map[uuid.UUID]domain.Card{},
		tags:           map[uuid.UUID]domain.Tag{},
		rounds:         map[uuid.UUID]domain.Round{},
		seasons:        map[uuid.UUID]domain.Season{},
		players:        map[uuid.UUID]string{},
		managers:       map[[2]uuid.UUID]bool{},
		tagMasters:     map[uuid.UUID]bool{},
	}
}

func (s *memStore) repos() repo.Repos {
	return repo.Repos{
		Participations: &memParticipations{s},
		Cards:          &memCards{s},
		Tags:           &memTags{s},
		History:        &memHistory{s},
		Rounds:         &memRounds{s},
		Seasons:        &memSeasons{s},
		Leagues:        &memLeagues{s},
	}
}

// memRunner satisfies repo.Runner without transactions: InTx simply invokes
// fn against the shared store. Tests that exercise error paths must not
// assume rollback.
type memRunner struct{ s *memStore }

func (r *memRunner) InTx(_ context.Context, fn func(repo.Repos) error) error {
	return fn(r.s.repos())
}

func (r *memRunner) Repos() repo.Repos { return r.s.repos() }

var _ repo.Runner = (*memRunner)(nil)

// --- fixture helpers --------------------------------------------------------

func (s *memStore) addSeason(leagueID uuid.UUID) domain.Season {
	season := domain.Season{ID: uuid.New(), LeagueID: leagueID, Name: "2026"}
	s.seasons[season.ID] = season
	return season
}

func (s *memStore) addRound(seasonID uuid.UUID, date time.Time) domain.Round {
	round := domain.Round{
		ID:       uuid.New(),
		SeasonID: seasonID,
		Date:     date,
		Status:   domain.RoundOpen,
	}
	s.rounds[round.ID] = round
	return round
}

func (s *memStore) addPlayer(name string) uuid.UUID {
	id := uuid.New()
	s.players[id] = name
	return id
}

func (s *memStore) grantManager(playerID, roundID uuid.UUID) {
	s.managers[[2]uuid.UUID{playerID, roundID}] = true
}

func (s *memStore) grantTagMaster(playerID uuid.UUID) {
	s.tagMasters[playerID] = true
}

func (s *memStore) addTag(playerID, seasonID uuid.UUID, number int) domain.Tag {
	t := domain.Tag{
		ID:             uuid.New(),
		PlayerID:       playerID,
		SeasonID:       seasonID,
		TagNumber:      number,
		AssignmentDate: time.Now().UTC(),
	}
	s.tags[t.ID] = t
	return t
}

// addParticipation inserts directly in the given status, bypassing service
// validation, for tests that need pre-existing state.
func (s *memStore) addParticipation(playerID, roundID uuid.UUID, status domain.Status) domain.Participation {
	p := domain.Participation{
		ID:        uuid.New(),
		PlayerID:  playerID,
		RoundID:   roundID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.participations[p.ID] = p
	s.partOrder = append(s.partOrder, p.ID)
	return p
}

// --- ParticipationRepo ------------------------------------------------------

type memParticipations struct{ s *memStore }

var _ repo.ParticipationRepo = (*memParticipations)(nil)

func (m *memParticipations) Create(_ context.Context, p domain.Participation) (domain.Participation, error) {
	for _, existing := range m.s.participations {
		if existing.PlayerID == p.PlayerID && existing.RoundID == p.RoundID {
			return domain.Participation{}, domain.ErrDuplicateParticipation
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.s.participations[p.ID] = p
	m.s.partOrder = append(m.s.partOrder, p.ID)
	return p, nil
}

func (m *memParticipations) Get(_ context.Context, id uuid.UUID) (domain.Participation, error) {
	p, ok := m.s.participations[id]
	if !ok {
		return domain.Participation{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memParticipations) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Participation, error) {
	return m.Get(ctx, id)
}

func (m *memParticipations) GetByPlayerRound(_ context.Context, playerID, roundID uuid.UUID) (domain.Participation, error) {
	for _, p := range m.s.participations {
		if p.PlayerID == playerID && p.RoundID == roundID {
			return p, nil
		}
	}
	return domain.Participation{}, domain.ErrNotFound
}

func (m *memParticipations) list(keep func(domain.Participation) bool) []domain.Participation {
	out := []domain.Participation{}
	for _, id := range m.s.partOrder {
		if p, ok := m.s.participations[id]; ok && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *memParticipations) ListByRound(_ context.Context, roundID uuid.UUID) ([]domain.Participation, error) {
	return m.list(func(p domain.Participation) bool { return p.RoundID == roundID }), nil
}

func (m *memParticipations) ListByCard(_ context.Context, cardID uuid.UUID) ([]domain.Participation, error) {
	return m.list(func(p domain.Participation) bool { return p.CardID != nil && *p.CardID == cardID }), nil
}

func (m *memParticipations) ListByCardForUpdate(ctx context.Context, cardID uuid.UUID) ([]domain.Participation, error) {
	return m.ListByCard(ctx, cardID)
}

func (m *memParticipations) ListCompletedByRound(_ context.Context, roundID uuid.UUID) ([]domain.Participation, error) {
	return m.list(func(p domain.Participation) bool {
		return p.RoundID == roundID && p.Status == domain.StatusCompleted
	}), nil
}

func (m *memParticipations) UpdateState(_ context.Context, p domain.Participation) (domain.Participation, error) {
	if _, ok := m.s.participations[p.ID]; !ok {
		return domain.Participation{}, domain.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	m.s.participations[p.ID] = p
	return p, nil
}

func (m *memParticipations) AssignCard(_ context.Context, participationIDs []uuid.UUID, cardID uuid.UUID) error {
	for _, id := range participationIDs {
		p, ok := m.s.participations[id]
		if !ok {
			return domain.ErrNotFound
		}
		c := cardID
		p.CardID = &c
		m.s.participations[id] = p
	}
	return nil
}

func (m *memParticipations) UnconfirmedOnCards(_ context.Context, roundID uuid.UUID) (int, error) {
	n := 0
	for _, p := range m.s.participations {
		if p.RoundID == roundID && p.CardID != nil && p.Status == domain.StatusCheckedIn {
			n++
		}
	}
	return n, nil
}

func (m *memParticipations) CompletedCountInLeague(_ context.Context, playerID, leagueID uuid.UUID) (int, error) {
	n := 0
	for _, p := range m.s.participations {
		if p.PlayerID != playerID || p.Status != domain.StatusCompleted {
			continue
		}
		round, ok := m.s.rounds[p.RoundID]
		if !ok {
			continue
		}
		if season, ok := m.s.seasons[round.SeasonID]; ok && season.LeagueID == leagueID {
			n++
		}
	}
	return n, nil
}

func (m *memParticipations) CompletedCountInRounds(_ context.Context, playerID uuid.UUID, roundIDs []uuid.UUID) (int, error) {
	in := map[uuid.UUID]bool{}
	for _, id := range roundIDs {
		in[id] = true
	}
	n := 0
	for _, p := range m.s.participations {
		if p.PlayerID == playerID && p.Status == domain.StatusCompleted && in[p.RoundID] {
			n++
		}
	}
	return n, nil
}

func (m *memParticipations) ListStale(_ context.Context, enteredBefore time.Time) ([]domain.StaleScore, error) {
	out := []domain.StaleScore{}
	for _, id := range m.s.partOrder {
		p := m.s.participations[id]
		if p.AwaitingConfirmation() && p.ScoreEnteredAt.Before(enteredBefore) {
			out = append(out, domain.StaleScore{
				ParticipationID: p.ID,
				PlayerID:        p.PlayerID,
				RoundID:         p.RoundID,
				CardID:          *p.CardID,
				EnteredAt:       *p.ScoreEnteredAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnteredAt.Before(out[j].EnteredAt) })
	return out, nil
}

// --- CardRepo ---------------------------------------------------------------

type memCards struct{ s *memStore }

var _ repo.CardRepo = (*memCards)(nil)

func (m *memCards) Create(_ context.Context, c domain.Card) (domain.Card, error) {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	m.s.cards[c.ID] = c
	m.s.cardOrder = append(m.s.cardOrder, c.ID)
	return c, nil
}

func (m *memCards) Get(_ context.Context, id uuid.UUID) (domain.Card, error) {
	c, ok := m.s.cards[id]
	if !ok {
		return domain.Card{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCards) ListByRound(_ context.Context, roundID uuid.UUID) ([]domain.Card, error) {
	out := []domain.Card{}
	for _, id := range m.s.cardOrder {
		if c := m.s.cards[id]; c.RoundID == roundID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- TagRepo ----------------------------------------------------------------

type memTags struct{ s *memStore }

var _ repo.TagRepo = (*memTags)(nil)

func (m *memTags) Create(_ context.Context, t domain.Tag) (domain.Tag, error) {
	for _, existing := range m.s.tags {
		if existing.SeasonID != t.SeasonID {
			continue
		}
		if existing.PlayerID == t.PlayerID || existing.TagNumber == t.TagNumber {
			return domain.Tag{}, domain.ErrReassignmentConflict
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.s.tags[t.ID] = t
	return t, nil
}

func (m *memTags) GetByPlayerSeason(_ context.Context, playerID, seasonID uuid.UUID) (domain.Tag, error) {
	for _, t := range m.s.tags {
		if t.PlayerID == playerID && t.SeasonID == seasonID {
			return t, nil
		}
	}
	return domain.Tag{}, domain.ErrNotFound
}

func (m *memTags) season(seasonID uuid.UUID, keep func(domain.Tag) bool) []domain.Tag {
	out := []domain.Tag{}
	for _, t := range m.s.tags {
		if t.SeasonID == seasonID && keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TagNumber < out[j].TagNumber })
	return out
}

func (m *memTags) ListBySeason(_ context.Context, seasonID uuid.UUID) ([]domain.Tag, error) {
	return m.season(seasonID, func(domain.Tag) bool { return true }), nil
}

func (m *memTags) LockSeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Tag, error) {
	return m.ListBySeason(ctx, seasonID)
}

func (m *memTags) LockPlayers(_ context.Context, seasonID uuid.UUID, playerIDs []uuid.UUID) ([]domain.Tag, error) {
	in := map[uuid.UUID]bool{}
	for _, id := range playerIDs {
		in[id] = true
	}
	return m.season(seasonID, func(t domain.Tag) bool { return in[t.PlayerID] }), nil
}

func (m *memTags) DeferSeasonNumberCheck(context.Context) error { return nil }

func (m *memTags) UpdateNumber(_ context.Context, tagID uuid.UUID, number int, assignedAt time.Time) error {
	t, ok := m.s.tags[tagID]
	if !ok {
		return domain.ErrNotFound
	}
	t.TagNumber = number
	t.AssignmentDate = assignedAt
	t.UpdatedAt = time.Now().UTC()
	m.s.tags[tagID] = t
	return nil
}

func (m *memTags) ListStandings(_ context.Context, seasonID uuid.UUID, p domain.PaginationParams) ([]domain.Standing, int64, error) {
	tags := m.season(seasonID, func(domain.Tag) bool { return true })
	total := int64(len(tags))

	out := []domain.Standing{}
	for i := p.Offset(); i < len(tags) && len(out) < p.Limit; i++ {
		t := tags[i]
		out = append(out, domain.Standing{
			PlayerID:       t.PlayerID,
			PlayerName:     m.s.players[t.PlayerID],
			TagNumber:      t.TagNumber,
			AssignmentDate: t.AssignmentDate,
		})
	}
	return out, total, nil
}

// --- TagHistoryRepo ---------------------------------------------------------

type memHistory struct{ s *memStore }

var _ repo.TagHistoryRepo = (*memHistory)(nil)

func (m *memHistory) Append(_ context.Context, h domain.TagHistory) (domain.TagHistory, error) {
	h.ID = uuid.New()
	h.CreatedAt = time.Now().UTC()
	m.s.history = append(m.s.history, h)
	return h, nil
}

func (m *memHistory) ListByPlayer(_ context.Context, playerID uuid.UUID, seasonID *uuid.UUID, p domain.PaginationParams) ([]domain.TagHistory, int64, error) {
	all := []domain.TagHistory{}
	for _, h := range m.s.history {
		if h.PlayerID != playerID {
			continue
		}
		if seasonID != nil && h.SeasonID != *seasonID {
			continue
		}
		all = append(all, h)
	}

	total := int64(len(all))
	out := []domain.TagHistory{}
	for i := p.Offset(); i < len(all) && len(out) < p.Limit; i++ {
		out = append(out, all[i])
	}
	return out, total, nil
}

func (m *memHistory) DeltasByRound(_ context.Context, roundID uuid.UUID) ([]domain.TagDelta, error) {
	out := []domain.TagDelta{}
	for i, h := range m.s.history {
		if h.RoundID == nil || *h.RoundID != roundID {
			continue
		}
		before := h.TagNumber
		for j := i - 1; j >= 0; j-- {
			prev := m.s.history[j]
			if prev.PlayerID == h.PlayerID && prev.SeasonID == h.SeasonID {
				before = prev.TagNumber
				break
			}
		}
		out = append(out, domain.TagDelta{PlayerID: h.PlayerID, BeforeTag: before, AfterTag: h.TagNumber})
	}
	return out, nil
}

// --- RoundRepo / SeasonRepo / LeagueRepo ------------------------------------

type memRounds struct{ s *memStore }

var _ repo.RoundRepo = (*memRounds)(nil)

func (m *memRounds) Get(_ context.Context, id uuid.UUID) (domain.Round, error) {
	r, ok := m.s.rounds[id]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memRounds) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Round, error) {
	return m.Get(ctx, id)
}

func (m *memRounds) SetStatus(_ context.Context, id uuid.UUID, status domain.RoundStatus) error {
	r, ok := m.s.rounds[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	m.s.rounds[id] = r
	return nil
}

func (m *memRounds) RecentRoundIDs(_ context.Context, seasonID uuid.UUID, limit int) ([]uuid.UUID, error) {
	rounds := []domain.Round{}
	for _, r := range m.s.rounds {
		if r.SeasonID == seasonID {
			rounds = append(rounds, r)
		}
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Date.After(rounds[j].Date) })

	out := []uuid.UUID{}
	for i := 0; i < len(rounds) && i < limit; i++ {
		out = append(out, rounds[i].ID)
	}
	return out, nil
}

type memSeasons struct{ s *memStore }

var _ repo.SeasonRepo = (*memSeasons)(nil)

func (m *memSeasons) Get(_ context.Context, id uuid.UUID) (domain.Season, error) {
	season, ok := m.s.seasons[id]
	if !ok {
		return domain.Season{}, domain.ErrNotFound
	}
	return season, nil
}

type memLeagues struct{ s *memStore }

var _ repo.LeagueRepo = (*memLeagues)(nil)

func (m *memLeagues) CanManageRound(_ context.Context, playerID, roundID uuid.UUID) (bool, error) {
	return m.s.managers[[2]uuid.UUID{playerID, roundID}] || m.s.tagMasters[playerID], nil
}
